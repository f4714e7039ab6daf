package server

import "time"

// Client is the registry's record of one connection.
type Client struct {
	ID        int
	Addr      string
	Buffer    []byte    // unterminated input since the last completed line
	LastCheck time.Time // when the last liveness probe went out
	Named     bool      // first completed line has been taken as the name

	socket Socket
}

// registry is an id-keyed table of clients. Records are stored by value and
// only changed through update, so nothing outside the table holds a live
// reference to one. Iteration follows insertion order, which is ascending id.
type registry struct {
	clients map[int]Client
	order   []int
	nextID  int
}

func newRegistry() *registry {
	return &registry{clients: make(map[int]Client)}
}

// register stores a new client and returns its id. Ids are never reused.
func (r *registry) register(sock Socket, addr string, now time.Time) int {
	id := r.nextID
	r.nextID++
	r.clients[id] = Client{
		ID:        id,
		Addr:      addr,
		LastCheck: now,
		socket:    sock,
	}
	r.order = append(r.order, id)
	return id
}

// remove deletes id and returns the record it held. Absent ids are a no-op.
func (r *registry) remove(id int) (Client, bool) {
	c, ok := r.clients[id]
	if !ok {
		return Client{}, false
	}
	delete(r.clients, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return c, true
}

func (r *registry) get(id int) (Client, bool) {
	c, ok := r.clients[id]
	return c, ok
}

// update applies fn to the record for id and stores the result. It reports
// false, without calling fn, when id is not registered.
func (r *registry) update(id int, fn func(*Client)) bool {
	c, ok := r.clients[id]
	if !ok {
		return false
	}
	fn(&c)
	r.clients[id] = c
	return true
}

// ids returns a snapshot of registered ids in iteration order. Callers that
// remove clients while walking the snapshot must re-check with get.
func (r *registry) ids() []int {
	out := make([]int, len(r.order))
	copy(out, r.order)
	return out
}

func (r *registry) len() int {
	return len(r.clients)
}
