package server

import "github.com/crystal-mush/tickmud/pkg/telnet"

// probeIdle sends IAC AYT to every client whose last probe is at least one
// probe interval old. A dead peer will not tell us it left; the write is what
// eventually fails and routes the client through disconnect.
func (s *Server) probeIdle() {
	now := s.now()
	for _, id := range s.clients.ids() {
		c, ok := s.clients.get(id)
		if !ok || now.Sub(c.LastCheck) < s.cfg.ProbeInterval {
			continue
		}
		s.log.Trace().Int("client", id).Msg("liveness probe")
		s.metrics.probed()
		s.write(id, telnet.Probe)
		s.clients.update(id, func(c *Client) { c.LastCheck = now })
	}
}
