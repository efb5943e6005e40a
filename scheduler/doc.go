// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package scheduler runs named tasks on interval, cron and one-shot triggers.

# Tasks

Tasks are plain functions registered by name:

	reg := scheduler.NewRegistry()
	reg.Register("example.count", countTask)

# Local

Local runs jobs in-process on robfig/cron:

	s := scheduler.NewLocal(reg, scheduler.WithStore(scheduler.NewGormStore(gdb)))
	s.AddJob(ctx, scheduler.JobSpec{
		ID:      "tick",
		Task:    "example.count",
		Trigger: scheduler.Trigger{Type: "interval", Seconds: 30},
	})
	s.Start(ctx)

Jobs added before Start are scheduled when it runs. With a store, job
definitions survive restarts and every run lands in job_runs. Date jobs
are removed once their scheduled run finishes.

# Core service

A core process shares one scheduler between prefork workers:

	h, _ := scheduler.NewHandler(s)
	mux.Handle(scheduler.RPCPath, h)

Workers talk to it through Remote, which implements the same Scheduler
interface over JSON-RPC (gorilla/rpc). Errors come back as the package's
sentinel errors, so errors.Is works on both sides:

	remote := scheduler.NewRemote("localhost:18861")
	if err := remote.Start(ctx); errors.Is(err, scheduler.ErrAlreadyRunning) {
		// another worker started it
	}

Remote.Shutdown only detaches; the core keeps running.
*/
package scheduler
