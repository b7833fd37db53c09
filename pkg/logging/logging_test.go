package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInit(t *testing.T) {
	Convey("Given a log file in a missing directory", t, func() {
		path := filepath.Join(t.TempDir(), "logs", "hivemind.log")

		So(Init(path), ShouldBeNil)
		log.Info("ingested", "source", "paper.pdf")
		Close()

		Convey("Then entries are written to the file", func() {
			raw, err := os.ReadFile(path)
			So(err, ShouldBeNil)
			So(string(raw), ShouldContainSubstring, "paper.pdf")
		})
	})
}

func TestSetLevel(t *testing.T) {
	Convey("Given a level name", t, func() {
		defer log.SetLevel(log.InfoLevel)

		SetLevel("debug")
		So(log.GetLevel(), ShouldEqual, log.DebugLevel)

		Convey("Then an unknown name leaves it unchanged", func() {
			SetLevel("chatty")
			So(log.GetLevel(), ShouldEqual, log.DebugLevel)
		})
	})
}
