package config_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/okian/workscore/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestWatch(t *testing.T) {
	convey.Convey("Given a watched config file", t, func() {
		clearConfigEnvVars()
		path := writeConfigFile(t, "global_mean: 4.0\n")
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		reloaded := make(chan *config.Config, 4)
		watchErr := make(chan error, 1)
		go func() {
			watchErr <- config.Watch(ctx, path, nil, func(c *config.Config) { reloaded <- c })
		}()
		// Give the watcher time to register the directory.
		time.Sleep(100 * time.Millisecond)

		convey.Convey("When an invalid edit is followed by a valid one", func() {
			convey.So(os.WriteFile(path, []byte("global_mean: 9\n"), 0o600), convey.ShouldBeNil)
			time.Sleep(50 * time.Millisecond)
			convey.So(os.WriteFile(path, []byte("global_mean: 3.5\n"), 0o600), convey.ShouldBeNil)

			convey.Convey("Then only the valid config is delivered", func() {
				var got *config.Config
				timeout := time.After(3 * time.Second)
				for got == nil || got.GlobalMean != 3.5 {
					select {
					case got = <-reloaded:
						convey.So(got.GlobalMean, convey.ShouldNotEqual, 9)
					case <-timeout:
						t.Fatal("config reload not observed")
					}
				}
				convey.So(got.GlobalMean, convey.ShouldEqual, 3.5)
			})
		})

		convey.Convey("When the context is canceled", func() {
			cancel()

			convey.Convey("Then Watch returns without error", func() {
				select {
				case err := <-watchErr:
					convey.So(err, convey.ShouldBeNil)
				case <-time.After(3 * time.Second):
					t.Fatal("watch did not stop")
				}
			})
		})
	})

	convey.Convey("Given an empty path", t, func() {
		err := config.Watch(context.Background(), "", nil, func(*config.Config) {})
		convey.So(err, convey.ShouldNotBeNil)
	})
}
