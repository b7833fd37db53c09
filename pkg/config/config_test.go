package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cohesivestack/valgo"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fromFile(t *testing.T) *viper.Viper {
	t.Helper()

	raw, err := os.ReadFile(filepath.Join("..", "..", "cmd", "cfg", "config.yml"))
	require.NoError(t, err)

	v := viper.New()
	v.SetConfigType("yml")
	require.NoError(t, v.ReadConfig(strings.NewReader(string(raw))))

	return v
}

func TestLoad(t *testing.T) {
	Convey("Given the shipped default config", t, func() {
		cfg, err := Load(fromFile(t))

		Convey("Then it loads and validates", func() {
			So(err, ShouldBeNil)
			So(cfg.Ingest.ChunkSize, ShouldEqual, 1000)
			So(cfg.Ingest.ExtractEvery, ShouldEqual, 5)
			So(cfg.Retrieval.HistoryLimit, ShouldEqual, 6)
			So(cfg.Retrieval.NeighborK, ShouldEqual, 1)
			So(cfg.Retrieval.DirectK, ShouldEqual, 2)
			So(cfg.Retrieval.Fusion, ShouldEqual, "ordered")
			So(cfg.Provider.Kind, ShouldEqual, "google")
			So(cfg.Vector.Kind, ShouldEqual, "memory")
		})

		Convey("Then the server is local only with file ingestion off", func() {
			So(cfg.Server.Addr, ShouldEqual, "127.0.0.1:3210")
			So(cfg.Server.Documents, ShouldBeEmpty)
		})

		Convey("Then the home directory is expanded", func() {
			So(cfg.Data.Dir, ShouldNotStartWith, "~")
			So(cfg.SessionDB(), ShouldEndWith, filepath.Join(".hivemind", "data", "history.db"))
		})

		Convey("Then retries translate to attempts", func() {
			So(cfg.RetryConfig().MaxAttempts, ShouldEqual, 3)
		})
	})

	Convey("Given a zero chunk size", t, func() {
		v := fromFile(t)
		v.Set("ingest.chunk_size", 0)

		_, err := Load(v)

		Convey("Then validation names the field", func() {
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "ingest.chunk_size")
		})
	})

	Convey("Given an unknown provider", t, func() {
		v := fromFile(t)
		v.Set("provider.kind", "watson")

		_, err := Load(v)

		Convey("Then it is rejected", func() {
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "provider.kind")
		})
	})

	Convey("Given qdrant without an embedding model", t, func() {
		v := fromFile(t)
		v.Set("vector.kind", "qdrant")

		_, err := Load(v)

		Convey("Then it is rejected", func() {
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "provider.embed_model")
		})
	})
}

func TestRetryConfigDisabled(t *testing.T) {
	cfg := &Config{}
	assert.Nil(t, cfg.RetryConfig())
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "data"), expandHome("~/data"))
	assert.Equal(t, "/var/lib/hivemind", expandHome("/var/lib/hivemind"))
	assert.Equal(t, "", expandHome(""))
}

func TestDescribe(t *testing.T) {
	Convey("Given a failed validation over two keys", t, func() {
		val := valgo.Is(
			valgo.String("", "data.dir").Not().Blank(),
			valgo.Int(0, "ingest.chunk_size").GreaterThan(0),
		)

		So(val.Valid(), ShouldBeFalse)
		message := describe(val.Error())

		Convey("Then both keys are named in order", func() {
			So(message, ShouldStartWith, "data.dir: ")
			So(message, ShouldContainSubstring, "; ingest.chunk_size: ")
			So(message, ShouldNotContainSubstring, "There is")
		})
	})

	Convey("Given a plain error", t, func() {
		Convey("Then its text is kept", func() {
			So(describe(errors.New("boom")), ShouldEqual, "boom")
		})
	})
}
