package runner

// Observer is notified about every request as it finishes. Implementations
// must be safe for concurrent use: batch members report in parallel.
type Observer interface {
	ObserveSample(sample RequestSample)
	ObserveFailure(target string, err error)
}

type nopObserver struct{}

func (nopObserver) ObserveSample(RequestSample)  {}
func (nopObserver) ObserveFailure(string, error) {}

type multiObserver []Observer

// MultiObserver fans notifications out to every non-nil observer.
func MultiObserver(observers ...Observer) Observer {
	var out multiObserver
	for _, o := range observers {
		if o != nil {
			out = append(out, o)
		}
	}
	switch len(out) {
	case 0:
		return nopObserver{}
	case 1:
		return out[0]
	}
	return out
}

func (m multiObserver) ObserveSample(sample RequestSample) {
	for _, o := range m {
		o.ObserveSample(sample)
	}
}

func (m multiObserver) ObserveFailure(target string, err error) {
	for _, o := range m {
		o.ObserveFailure(target, err)
	}
}
