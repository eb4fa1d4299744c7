// Package hostdistance defines the host-distance classification contract
// the decoder exposes to load-balancing collaborators (§4.8). The decoder
// itself never produces or consumes a Distance; it is a public surface
// for code outside this module.
package hostdistance

// Distance classifies a cluster peer relative to the client. Exactly one
// of IsLocal, IsRemote, IsIgnore is true for any Distance value produced
// by Local, Remote, or Ignore.
type Distance int

const (
	Local Distance = iota
	Remote
	Ignore
)

func (d Distance) String() string {
	switch d {
	case Local:
		return "Local"
	case Remote:
		return "Remote"
	case Ignore:
		return "Ignore"
	}
	return "Unknown"
}

// IsLocal reports whether d is Local.
func (d Distance) IsLocal() bool { return d == Local }

// IsRemote reports whether d is Remote.
func (d Distance) IsRemote() bool { return d == Remote }

// IsIgnore reports whether d is Ignore.
func (d Distance) IsIgnore() bool { return d == Ignore }
