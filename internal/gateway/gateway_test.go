package gateway

import (
	"testing"
	"time"
)

func TestSubmitQueuesJob(t *testing.T) {
	mb := NewMailbox(1)
	job, reply, err := mb.submit([]byte("run { #1 }"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if job.ID == "" {
		t.Fatal("submit returned a job with an empty ID")
	}

	select {
	case got := <-mb.Inbox():
		if got.ID != job.ID {
			t.Fatalf("Inbox delivered job %q, want %q", got.ID, job.ID)
		}
	default:
		t.Fatal("Inbox had no queued job")
	}

	mb.Resolve(job.ID, "#1", nil)
	select {
	case res := <-reply:
		if res.Output != "#1" || res.Err != nil {
			t.Fatalf("reply = %+v, want Output=#1 Err=nil", res)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for the reply channel")
	}
}

func TestSubmitRejectsWhenFull(t *testing.T) {
	mb := NewMailbox(1)
	if _, _, err := mb.submit([]byte("a")); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if _, _, err := mb.submit([]byte("b")); err != ErrMailboxFull {
		t.Fatalf("second submit error = %v, want ErrMailboxFull", err)
	}
}

func TestResolveUnknownIDIsNoop(t *testing.T) {
	mb := NewMailbox(1)
	mb.Resolve("does-not-exist", "ignored", nil)
}

func TestResolveDeliversError(t *testing.T) {
	mb := NewMailbox(1)
	job, reply, err := mb.submit([]byte("run { (/ #1 #0) }"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	<-mb.Inbox()

	boom := errMessage("division by zero")
	mb.Resolve(job.ID, "", boom)

	select {
	case res := <-reply:
		if res.Err != boom {
			t.Fatalf("reply.Err = %v, want %v", res.Err, boom)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for the reply channel")
	}
}

type errMessage string

func (e errMessage) Error() string { return string(e) }
