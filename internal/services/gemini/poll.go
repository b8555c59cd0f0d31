package gemini

import "time"

const (
	defaultPollInterval    = 10 * time.Second
	defaultPollMaxInterval = 30 * time.Second
	defaultPollTimeout     = 15 * time.Minute
)

// PollPolicy bounds the wait for an uploaded file to become ACTIVE. The delay
// between status checks starts at Interval and doubles up to MaxInterval.
type PollPolicy struct {
	Interval    time.Duration
	MaxInterval time.Duration
	Timeout     time.Duration
}

// DefaultPollPolicy returns the 10s/30s/15m policy.
func DefaultPollPolicy() PollPolicy {
	return PollPolicy{
		Interval:    defaultPollInterval,
		MaxInterval: defaultPollMaxInterval,
		Timeout:     defaultPollTimeout,
	}
}

func (p PollPolicy) normalized() PollPolicy {
	if p.Interval <= 0 {
		p.Interval = defaultPollInterval
	}
	if p.MaxInterval < p.Interval {
		p.MaxInterval = p.Interval
	}
	if p.Timeout <= 0 {
		p.Timeout = defaultPollTimeout
	}
	return p
}

func (p PollPolicy) next(current time.Duration) time.Duration {
	next := current * 2
	if next > p.MaxInterval {
		return p.MaxInterval
	}
	return next
}
