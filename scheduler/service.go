// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package scheduler

import (
	"fmt"
	"net/http"

	"github.com/gorilla/rpc"
	"github.com/gorilla/rpc/json"
)

// RPCPath is where the core process serves the scheduler
const RPCPath = "/rpc"

// ServiceName prefixes every RPC method, e.g. "Scheduler.AddJob"
const ServiceName = "Scheduler"

type NoArgs struct{}

type JobIDArgs struct {
	ID string `json:"id"`
}

type AddJobArgs struct {
	Spec JobSpec `json:"spec"`
}

type JobReply struct {
	Job JobInfo `json:"job"`
}

type JobsReply struct {
	Jobs []JobInfo `json:"jobs"`
}

type StateReply struct {
	State State `json:"state"`
}

type Ack struct {
	OK bool `json:"ok"`
}

// Service exposes a Scheduler to worker processes. Shutdown is not
// exported; only the core decides when its scheduler stops.
type Service struct {
	s Scheduler
}

func NewService(s Scheduler) *Service {
	return &Service{s: s}
}

// NewHandler returns a JSON-RPC handler for s
func NewHandler(s Scheduler) (http.Handler, error) {
	server := rpc.NewServer()
	server.RegisterCodec(json.NewCodec(), "application/json")
	if err := server.RegisterService(NewService(s), ServiceName); err != nil {
		return nil, fmt.Errorf("failed to register scheduler service: %w", err)
	}
	return server, nil
}

func (svc *Service) Start(r *http.Request, _ *NoArgs, reply *Ack) error {
	if err := svc.s.Start(r.Context()); err != nil {
		return err
	}
	reply.OK = true
	return nil
}

func (svc *Service) State(r *http.Request, _ *NoArgs, reply *StateReply) error {
	st, err := svc.s.State(r.Context())
	if err != nil {
		return err
	}
	reply.State = st
	return nil
}

func (svc *Service) AddJob(r *http.Request, args *AddJobArgs, reply *JobReply) error {
	job, err := svc.s.AddJob(r.Context(), args.Spec)
	if err != nil {
		return err
	}
	reply.Job = job
	return nil
}

func (svc *Service) GetJob(r *http.Request, args *JobIDArgs, reply *JobReply) error {
	job, err := svc.s.GetJob(r.Context(), args.ID)
	if err != nil {
		return err
	}
	reply.Job = job
	return nil
}

func (svc *Service) ListJobs(r *http.Request, _ *NoArgs, reply *JobsReply) error {
	jobs, err := svc.s.ListJobs(r.Context())
	if err != nil {
		return err
	}
	reply.Jobs = jobs
	return nil
}

func (svc *Service) RemoveJob(r *http.Request, args *JobIDArgs, reply *Ack) error {
	if err := svc.s.RemoveJob(r.Context(), args.ID); err != nil {
		return err
	}
	reply.OK = true
	return nil
}

func (svc *Service) PauseJob(r *http.Request, args *JobIDArgs, reply *JobReply) error {
	job, err := svc.s.PauseJob(r.Context(), args.ID)
	if err != nil {
		return err
	}
	reply.Job = job
	return nil
}

func (svc *Service) ResumeJob(r *http.Request, args *JobIDArgs, reply *JobReply) error {
	job, err := svc.s.ResumeJob(r.Context(), args.ID)
	if err != nil {
		return err
	}
	reply.Job = job
	return nil
}

func (svc *Service) RunJob(r *http.Request, args *JobIDArgs, reply *Ack) error {
	if err := svc.s.RunJob(r.Context(), args.ID); err != nil {
		return err
	}
	reply.OK = true
	return nil
}
