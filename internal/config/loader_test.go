package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/tally/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	Convey("Given no file and no environment overrides", t, func() {
		cfg, err := config.Load(context.Background())

		Convey("Then defaults apply", func() {
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":9090")
			So(cfg.StoreBackend, ShouldEqual, config.BackendJSONFile)
			So(cfg.StorePath, ShouldEqual, "ratings.json")
			So(cfg.MaxRevisions, ShouldEqual, 3)
			So(cfg.MaxLeaderboardLimit, ShouldEqual, 10)
			So(cfg.LogLevel, ShouldEqual, "info")
		})
	})
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("TALLY_ADDR", ":8080")
	t.Setenv("TALLY_STORE_BACKEND", "sqlite")
	t.Setenv("TALLY_STORE_PATH", "/tmp/tally.db")
	t.Setenv("TALLY_MAX_REVISIONS", "5")
	t.Setenv("TALLY_LOG_LEVEL", "debug")

	Convey("Given TALLY_ environment variables", t, func() {
		cfg, err := config.Load(context.Background())

		Convey("Then they override the defaults", func() {
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":8080")
			So(cfg.StoreBackend, ShouldEqual, config.BackendSQLite)
			So(cfg.StorePath, ShouldEqual, "/tmp/tally.db")
			So(cfg.MaxRevisions, ShouldEqual, 5)
			So(cfg.LogLevel, ShouldEqual, "debug")
		})
	})
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tally.yaml")
	yaml := []byte("addr: \":7070\"\nstore_backend: sqlite\nstore_path: data/tally.db\nmoderator_ids:\n  - 7\n  - 8\n")
	if err := os.WriteFile(path, yaml, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("TALLY_CONFIG", path)

	Convey("Given a YAML file pointed to by TALLY_CONFIG", t, func() {
		cfg, err := config.Load(context.Background())

		Convey("Then the file layers over the defaults", func() {
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":7070")
			So(cfg.StoreBackend, ShouldEqual, config.BackendSQLite)
			So(cfg.StorePath, ShouldEqual, "data/tally.db")
			So(cfg.ModeratorIDs, ShouldResemble, []int64{7, 8})
			So(cfg.MaxRevisions, ShouldEqual, 3)
		})
	})
}

func TestLoadEnvBeatsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tally.yaml")
	if err := os.WriteFile(path, []byte("addr: \":7070\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("TALLY_CONFIG", path)
	t.Setenv("TALLY_ADDR", ":6060")

	Convey("Given both a file and an environment override", t, func() {
		cfg, err := config.Load(context.Background())

		Convey("Then the environment wins", func() {
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":6060")
		})
	})
}

func TestLoadValidation(t *testing.T) {
	Convey("Given an unknown store backend", t, func() {
		t.Setenv("TALLY_STORE_BACKEND", "etcd")
		_, err := config.Load(context.Background())
		So(err, ShouldNotBeNil)
		So(err.Error(), ShouldContainSubstring, "store_backend")
	})
}

func TestLoadRejectsZeroRevisions(t *testing.T) {
	t.Setenv("TALLY_MAX_REVISIONS", "0")

	Convey("Given a revision cap below one", t, func() {
		_, err := config.Load(context.Background())
		So(err, ShouldNotBeNil)
		So(err.Error(), ShouldContainSubstring, "max_revisions")
	})
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("TALLY_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))

	Convey("Given TALLY_CONFIG pointing at a missing file", t, func() {
		_, err := config.Load(context.Background())
		So(err, ShouldNotBeNil)
	})
}
