// Basic usage
//
//	paths, err := hunt.Find(ctx, "/home/me/projects", "node_modules", ".git")
//
// Streaming results
//
//	p := hunt.New(hunt.Options{Workers: 4})
//	scan, err := p.StartScan(ctx, hunt.Config{
//		RootPath:   "/home/me/projects",
//		TargetName: "node_modules",
//	})
//	if err != nil {
//		return err
//	}
//	for path := range scan.Paths() {
//		fmt.Println(path, hunt.IsDangerous(path))
//	}
//	if err := scan.Wait(); err != nil {
//		return err
//	}
//
// A scan ends when every walker reports that it holds no pending work
// (StatusFinished), when a walker fails (StatusDead), or when it is stopped
// with Scan.Stop or by canceling the context passed to StartScan
// (StatusStopped).

package hunt
