package runner

// Observer receives job and batch notifications from the worker.
//
// Calls for one batch are serialized and arrive in completion order.
// Implementations should return quickly; they run on the worker.
type Observer interface {
	JobStarted(job *Job)
	JobFinished(p Progress)
	BatchFinished(s Summary)
}

// Funcs adapts plain functions to Observer. Nil fields are skipped.
type Funcs struct {
	Started  func(job *Job)
	Finished func(p Progress)
	Done     func(s Summary)
}

func (f Funcs) JobStarted(job *Job) {
	if f.Started != nil {
		f.Started(job)
	}
}

func (f Funcs) JobFinished(p Progress) {
	if f.Finished != nil {
		f.Finished(p)
	}
}

func (f Funcs) BatchFinished(s Summary) {
	if f.Done != nil {
		f.Done(s)
	}
}

// Observers fans notifications out to each element in order.
type Observers []Observer

func (o Observers) JobStarted(job *Job) {
	for _, obs := range o {
		obs.JobStarted(job)
	}
}

func (o Observers) JobFinished(p Progress) {
	for _, obs := range o {
		obs.JobFinished(p)
	}
}

func (o Observers) BatchFinished(s Summary) {
	for _, obs := range o {
		obs.BatchFinished(s)
	}
}
