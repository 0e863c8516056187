package domain

import "fmt"

// RosterPolicy is the single place where the two session variants differ:
// who may hold a participant record and when the roster drives a lifecycle
// transition. Everything else in the engine is shared.
type RosterPolicy interface {
	// Admit finds or creates the participant record for a join.
	Admit(s *Session, userID UserID, name string, role Role) (*Participant, error)
	// Activates reports whether the roster now satisfies the activation
	// condition. Only consulted while the session is still scheduled.
	Activates(s *Session) bool
	// Completes reports whether the roster now satisfies the completion
	// condition. Only consulted while the session is active.
	Completes(s *Session) bool
}

func PolicyFor(v Variant) RosterPolicy {
	if v == VariantInterview {
		return FixedPair{}
	}
	return OpenRoster{}
}

// FixedPair holds exactly one candidate and one interviewer. The session
// activates when both have a join time and completes when both have left.
type FixedPair struct{}

func (FixedPair) Admit(s *Session, userID UserID, name string, role Role) (*Participant, error) {
	if role != RoleCandidate && role != RoleInterviewer {
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}
	if p, ok := s.Participant(userID); ok {
		if p.Role != role {
			return nil, fmt.Errorf("%w: %s already holds role %s", ErrUnauthorized, userID, p.Role)
		}
		return p, nil
	}
	if held, ok := s.ParticipantByRole(role); ok && held.UserID != userID {
		return nil, fmt.Errorf("%w: role %s is taken", ErrUnauthorized, role)
	}
	p := &Participant{UserID: userID, Name: name, Role: role}
	s.Participants[userID] = p
	return p, nil
}

func (FixedPair) Activates(s *Session) bool {
	c, okc := s.ParticipantByRole(RoleCandidate)
	i, oki := s.ParticipantByRole(RoleInterviewer)
	return okc && oki && c.JoinedAt != nil && i.JoinedAt != nil
}

func (FixedPair) Completes(s *Session) bool {
	c, okc := s.ParticipantByRole(RoleCandidate)
	i, oki := s.ParticipantByRole(RoleInterviewer)
	return okc && oki &&
		c.Status == PresenceLeft && i.Status == PresenceLeft &&
		c.LeftAt != nil && i.LeftAt != nil
}

// OpenRoster admits anyone under any role and never drives the lifecycle;
// callers only observe the roster.
type OpenRoster struct{}

func (OpenRoster) Admit(s *Session, userID UserID, name string, role Role) (*Participant, error) {
	if p, ok := s.Participant(userID); ok {
		p.Name = name
		p.Role = role
		return p, nil
	}
	p := &Participant{UserID: userID, Name: name, Role: role}
	s.Participants[userID] = p
	return p, nil
}

func (OpenRoster) Activates(*Session) bool { return false }

func (OpenRoster) Completes(*Session) bool { return false }
