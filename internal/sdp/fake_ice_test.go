package sdp

import "sync"

// fakeIceSession is a deterministic stand-in for pionIceSession: it
// fires the completion callback immediately instead of doing real
// network gathering, so bridge tests run instantly.
type fakeIceSession struct {
	mu         sync.Mutex
	ufrag      string
	pwd        string
	candidates []string
	remote     []string
	closed     bool
}

func newFakeIceSession(ufrag, pwd string, candidates []string) *fakeIceSession {
	return &fakeIceSession{ufrag: ufrag, pwd: pwd, candidates: candidates}
}

func (f *fakeIceSession) LocalCredentials() (string, string, error) {
	return f.ufrag, f.pwd, nil
}

func (f *fakeIceSession) Gather(onCandidate func(candidate string)) error {
	for _, c := range f.candidates {
		onCandidate(c)
	}
	onCandidate("")
	return nil
}

func (f *fakeIceSession) AddRemoteCandidate(candidate string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.remote = append(f.remote, candidate)
	return nil
}

func (f *fakeIceSession) Close() error {
	f.closed = true
	return nil
}
