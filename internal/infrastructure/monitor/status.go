package monitor

import "time"

type Status struct {
	PostgreSQL bool      `json:"postgresql"`
	Redis      bool      `json:"redis"`
	Buffer     bool      `json:"buffer"`
	BufferSize int       `json:"buffer_size"`
	LastCheck  time.Time `json:"last_check"`
}

// Online reports whether the store and the run lock backend are reachable.
// Assignment writes are only attempted while online.
func (s Status) Online() bool {
	return s.PostgreSQL && s.Redis
}
