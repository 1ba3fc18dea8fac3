package sdp

import (
	"fmt"
	"sync"

	"github.com/pion/ice/v4"
	"github.com/pion/stun/v3"
)

// IceSession is the seam between the SDP bridge and the underlying
// ICE agent, addressed only through this interface. pionIceSession is
// the production implementation; tests substitute a fake.
type IceSession interface {
	// LocalCredentials returns this handle's local ufrag/pwd, generating
	// the agent lazily on first call.
	LocalCredentials() (ufrag, pwd string, err error)
	// Gather kicks off candidate gathering and invokes onCandidate once
	// per discovered candidate, then a final time with an empty string
	// to signal completion (mirrors ice.Agent's OnCandidate(nil) convention).
	Gather(onCandidate func(candidate string)) error
	// AddRemoteCandidate installs one remote ICE candidate line.
	AddRemoteCandidate(candidate string) error
	// Close releases the underlying agent.
	Close() error
}

// pionIceSession wraps a single pion/ice/v4 Agent for one handle's
// bundled audio+video media (see DESIGN.md: one agent per handle,
// not one per legacy stream/component).
type pionIceSession struct {
	mu    sync.Mutex
	agent *ice.Agent

	stunServer string
	stunPort   int
}

// newPionIceSession builds a lazily-initialized ICE session pointed at
// the configured STUN server.
func newPionIceSession(stunServer string, stunPort int) *pionIceSession {
	return &pionIceSession{stunServer: stunServer, stunPort: stunPort}
}

func (s *pionIceSession) ensureAgent() (*ice.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.agent != nil {
		return s.agent, nil
	}

	cfg := &ice.AgentConfig{
		NetworkTypes: []ice.NetworkType{ice.NetworkTypeUDP4, ice.NetworkTypeUDP6},
	}
	if s.stunServer != "" {
		cfg.Urls = []*stun.URI{{
			Scheme: stun.SchemeTypeSTUN,
			Host:   s.stunServer,
			Port:   s.stunPort,
		}}
	}

	agent, err := ice.NewAgent(cfg)
	if err != nil {
		return nil, fmt.Errorf("sdp: creating ICE agent: %w", err)
	}
	s.agent = agent
	return agent, nil
}

func (s *pionIceSession) LocalCredentials() (string, string, error) {
	agent, err := s.ensureAgent()
	if err != nil {
		return "", "", err
	}
	return agent.GetLocalUserCredentials()
}

func (s *pionIceSession) Gather(onCandidate func(candidate string)) error {
	agent, err := s.ensureAgent()
	if err != nil {
		return err
	}
	if err := agent.OnCandidate(func(c ice.Candidate) {
		if c == nil {
			onCandidate("")
			return
		}
		onCandidate(c.Marshal())
	}); err != nil {
		return fmt.Errorf("sdp: registering candidate callback: %w", err)
	}
	if err := agent.GatherCandidates(); err != nil {
		return fmt.Errorf("sdp: starting candidate gathering: %w", err)
	}
	return nil
}

func (s *pionIceSession) AddRemoteCandidate(candidate string) error {
	agent, err := s.ensureAgent()
	if err != nil {
		return err
	}
	c, err := ice.UnmarshalCandidate(candidate)
	if err != nil {
		return fmt.Errorf("sdp: parsing remote candidate: %w", err)
	}
	return agent.AddRemoteCandidate(c)
}

func (s *pionIceSession) Close() error {
	s.mu.Lock()
	agent := s.agent
	s.mu.Unlock()
	if agent == nil {
		return nil
	}
	return agent.Close()
}
