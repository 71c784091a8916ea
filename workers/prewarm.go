package workers

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/Purestreams/Mio-Gallery/media"
)

// PrewarmJob asks for the thumbnail of one freshly uploaded asset
type PrewarmJob struct {
	ID string
}

// ThumbnailPrewarmer generates thumbnails in the background right after
// upload so the first grid view doesn't pay the generation cost. The
// artifact cache's per-key collapsing keeps prewarm and on-demand requests
// from ever generating twice.
type ThumbnailPrewarmer struct {
	JobQueue chan PrewarmJob
	Wg       sync.WaitGroup
	StopChan chan struct{}
	Pending  map[string]bool
	Mutex    sync.Mutex

	cache *media.ArtifactCache
}

func NewThumbnailPrewarmer(cache *media.ArtifactCache, queueSize, numWorkers int) *ThumbnailPrewarmer {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	if queueSize <= 0 {
		queueSize = 100
	}

	tp := &ThumbnailPrewarmer{
		JobQueue: make(chan PrewarmJob, queueSize),
		StopChan: make(chan struct{}),
		Pending:  make(map[string]bool),
		cache:    cache,
	}

	tp.Wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go tp.worker(i)
	}
	log.Printf("started %d thumbnail prewarm worker(s) with queue size %d", numWorkers, queueSize)

	return tp
}

func (tp *ThumbnailPrewarmer) worker(id int) {
	defer tp.Wg.Done()
	log.Printf("prewarm worker %d started", id)
	for {
		select {
		case job, ok := <-tp.JobQueue:
			if !ok {
				log.Printf("prewarm worker %d stopping: job queue closed", id)
				return
			}
			tp.processJob(job)
			tp.Mutex.Lock()
			delete(tp.Pending, job.ID)
			tp.Mutex.Unlock()

		case <-tp.StopChan:
			log.Printf("prewarm worker %d stopping: stop signal received", id)
			return
		}
	}
}

func (tp *ThumbnailPrewarmer) processJob(job PrewarmJob) {
	_, err := tp.cache.Thumbnail(context.Background(), job.ID)
	if err != nil {
		// the asset may already have been deleted again; that's not an error
		if errors.Is(err, media.ErrNotFound) {
			return
		}
		log.Printf("ERROR prewarming thumbnail for %s: %v", job.ID, err)
		return
	}
	log.Printf("prewarmed thumbnail for %s", job.ID)
}

// QueueJob queues a prewarm for the id unless one is already pending
func (tp *ThumbnailPrewarmer) QueueJob(job PrewarmJob) bool {
	tp.Mutex.Lock()
	if tp.Pending[job.ID] {
		tp.Mutex.Unlock()
		return false
	}
	tp.Pending[job.ID] = true
	tp.Mutex.Unlock()

	select {
	case tp.JobQueue <- job:
		log.Printf("queued thumbnail prewarm for: %s", job.ID)
		return true
	default:
		log.Printf("WARNING: prewarm job queue full, skipping %s", job.ID)
		tp.Mutex.Lock()
		delete(tp.Pending, job.ID)
		tp.Mutex.Unlock()
		return false
	}
}

func (tp *ThumbnailPrewarmer) Stop() {
	log.Println("stopping thumbnail prewarmer...")
	close(tp.StopChan)
	tp.Wg.Wait()
	log.Println("all prewarm workers stopped")
}
