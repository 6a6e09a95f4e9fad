// Package gateway implements the §5 external mailbox: an inbound
// websocket transport carrying block/statement bodies into a bounded
// channel that feeds the single runtime thread, with uuid-keyed
// one-shot reply channels carrying each submission's JSON result back
// out once the runtime thread has processed it.
//
// Grounded on the teacher's internal/network (WebSocketServer/
// WebSocketConn) for the connection-handling shape, generalized from
// its security-scanning use to a request/reply mailbox.
package gateway

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ErrMailboxFull is returned when the bounded inbox has no free slot
// for a newly-received body.
var ErrMailboxFull = errors.New("gateway: mailbox is full")

// Job is one body pulled off the mailbox's inbox, awaiting processing
// by the runtime thread.
type Job struct {
	ID   string
	Body []byte
}

// Result is a Job's outcome, reported back over its one-shot reply
// channel and serialized to the originating websocket connection.
type Result struct {
	ID     string
	Output string
	Err    error
}

type wireResult struct {
	ID     string `json:"id"`
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Mailbox is the external-facing side of spec §5's mailbox: a bounded
// channel of incoming Jobs, and a registry of reply channels keyed by
// Job ID so Resolve can find its way back to the right connection
// even though jobs from many connections share one inbox.
type Mailbox struct {
	inbox    chan Job
	upgrader websocket.Upgrader

	mu      sync.Mutex
	pending map[string]chan Result

	// ReplyTimeout bounds how long a connection waits for Resolve
	// before reporting a timeout to the client. Zero means no timeout.
	ReplyTimeout time.Duration
}

// NewMailbox builds a Mailbox whose inbox holds at most capacity
// unprocessed jobs; submissions beyond that are rejected with
// ErrMailboxFull rather than blocking the accepting goroutine.
func NewMailbox(capacity int) *Mailbox {
	return &Mailbox{
		inbox:        make(chan Job, capacity),
		pending:      make(map[string]chan Result),
		ReplyTimeout: 30 * time.Second,
	}
}

// Inbox is the channel the single runtime thread drains jobs from.
func (mb *Mailbox) Inbox() <-chan Job { return mb.inbox }

// Resolve delivers a Job's outcome to whichever connection is waiting
// on it. A Resolve for an unknown or already-resolved ID is a no-op —
// the waiting connection may have already timed out and walked away.
func (mb *Mailbox) Resolve(id string, output string, err error) {
	mb.mu.Lock()
	reply, ok := mb.pending[id]
	if ok {
		delete(mb.pending, id)
	}
	mb.mu.Unlock()
	if ok {
		reply <- Result{ID: id, Output: output, Err: err}
	}
}

func (mb *Mailbox) submit(body []byte) (Job, <-chan Result, error) {
	job := Job{ID: uuid.NewString(), Body: body}
	reply := make(chan Result, 1)

	mb.mu.Lock()
	mb.pending[job.ID] = reply
	mb.mu.Unlock()

	select {
	case mb.inbox <- job:
		return job, reply, nil
	default:
		mb.mu.Lock()
		delete(mb.pending, job.ID)
		mb.mu.Unlock()
		return Job{}, nil, ErrMailboxFull
	}
}

// Handler upgrades each incoming request to a websocket connection and
// serves it: every binary/text frame received is submitted as a Job,
// and the matching Result is written back as JSON once Resolve fires
// (or a wireResult carrying a timeout/overload error, otherwise).
func (mb *Mailbox) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := mb.upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("gateway: upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		for {
			_, body, err := conn.ReadMessage()
			if err != nil {
				return
			}
			mb.serveOne(conn, body)
		}
	}
}

func (mb *Mailbox) serveOne(conn *websocket.Conn, body []byte) {
	job, reply, err := mb.submit(body)
	if err != nil {
		writeResult(conn, wireResult{Error: err.Error()})
		return
	}

	if mb.ReplyTimeout <= 0 {
		writeResult(conn, toWire(<-reply))
		return
	}

	select {
	case res := <-reply:
		writeResult(conn, toWire(res))
	case <-time.After(mb.ReplyTimeout):
		writeResult(conn, wireResult{ID: job.ID, Error: "timed out waiting for a result"})
	}
}

func toWire(res Result) wireResult {
	w := wireResult{ID: res.ID, Output: res.Output}
	if res.Err != nil {
		w.Error = res.Err.Error()
	}
	return w
}

func writeResult(conn *websocket.Conn, w wireResult) {
	b, err := json.Marshal(w)
	if err != nil {
		log.Printf("gateway: marshal result: %v", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		log.Printf("gateway: write result: %v", err)
	}
}
