// Package periodic runs in-process jobs on simple schedules.
//
// A Runner owns a set of named tasks, each with a Schedule (Every, HourlyAt,
// DailyAt) and a Func. Start drives all of them concurrently until the
// context ends. When a Locker is configured each tick first takes a lock named
// after the task, so several replicas can run the same binary while a job
// executes at most once per tick.
//
//	runner := periodic.NewRunner(
//		periodic.WithLogger(log),
//		periodic.WithLocker(redis.NewLocker(client, "clubkit:lock:")),
//	)
//	_ = runner.Register("lifecycle-sweep", periodic.Every(time.Minute), svc.RunSweep,
//		periodic.WithTimeout(5*time.Minute),
//	)
//	go runner.Start(ctx)
package periodic
