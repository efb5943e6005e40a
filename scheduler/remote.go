// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package scheduler

import (
	"bytes"
	"context"
	stdjson "encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	rpcjson "github.com/gorilla/rpc/json"
)

// Remote forwards every call to the scheduler of a core process
type Remote struct {
	url    string
	client *http.Client
}

// NewRemote connects to the core service at addr (host:port)
func NewRemote(addr string) *Remote {
	return &Remote{
		url:    "http://" + addr + RPCPath,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Start asks the core to start its scheduler. ErrAlreadyRunning is
// returned when another worker got there first.
func (c *Remote) Start(ctx context.Context) error {
	return c.call(ctx, "Start", &NoArgs{}, &Ack{})
}

// Shutdown detaches this client. The core's scheduler keeps running.
func (c *Remote) Shutdown(context.Context) error {
	c.client.CloseIdleConnections()
	return nil
}

func (c *Remote) State(ctx context.Context) (State, error) {
	var reply StateReply
	err := c.call(ctx, "State", &NoArgs{}, &reply)
	return reply.State, err
}

func (c *Remote) AddJob(ctx context.Context, spec JobSpec) (JobInfo, error) {
	var reply JobReply
	err := c.call(ctx, "AddJob", &AddJobArgs{Spec: spec}, &reply)
	return reply.Job, err
}

func (c *Remote) GetJob(ctx context.Context, id string) (JobInfo, error) {
	var reply JobReply
	err := c.call(ctx, "GetJob", &JobIDArgs{ID: id}, &reply)
	return reply.Job, err
}

func (c *Remote) ListJobs(ctx context.Context) ([]JobInfo, error) {
	var reply JobsReply
	err := c.call(ctx, "ListJobs", &NoArgs{}, &reply)
	return reply.Jobs, err
}

func (c *Remote) RemoveJob(ctx context.Context, id string) error {
	return c.call(ctx, "RemoveJob", &JobIDArgs{ID: id}, &Ack{})
}

func (c *Remote) PauseJob(ctx context.Context, id string) (JobInfo, error) {
	var reply JobReply
	err := c.call(ctx, "PauseJob", &JobIDArgs{ID: id}, &reply)
	return reply.Job, err
}

func (c *Remote) ResumeJob(ctx context.Context, id string) (JobInfo, error) {
	var reply JobReply
	err := c.call(ctx, "ResumeJob", &JobIDArgs{ID: id}, &reply)
	return reply.Job, err
}

func (c *Remote) RunJob(ctx context.Context, id string) error {
	return c.call(ctx, "RunJob", &JobIDArgs{ID: id}, &Ack{})
}

func (c *Remote) call(ctx context.Context, method string, args, reply any) error {
	body, err := rpcjson.EncodeClientRequest(ServiceName+"."+method, args)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("scheduler core unreachable: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", method, err)
	}
	// Transport level failures come back as plain text
	if !stdjson.Valid(data) {
		return fmt.Errorf("scheduler core: %s: %s", resp.Status, strings.TrimSpace(string(data)))
	}

	if err := rpcjson.DecodeClientResponse(bytes.NewReader(data), reply); err != nil {
		return remoteError(err)
	}
	return nil
}

// remoteError restores the sentinel an error message started with
func remoteError(err error) error {
	msg := err.Error()
	for _, sentinel := range sentinels {
		if rest, ok := strings.CutPrefix(msg, sentinel.Error()); ok {
			return fmt.Errorf("%w%s", sentinel, rest)
		}
	}
	return errors.New(msg)
}

var _ Scheduler = (*Remote)(nil)
