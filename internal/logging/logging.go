// Package logging wires github.com/sirupsen/logrus to the daily-rotated,
// 7-day-retained file output spec.md §6 names (".log/{database_name}.log"),
// via gopkg.in/natefinch/lumberjack.v2 as a logrus io.Writer. Each worker
// gets its own *logrus.Entry tagged with a "component" field
// (messenger, broadcaster, blockparser, processor, http), matching the
// per-worker logging SPEC_FULL.md's ambient stack section calls for.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// RetainDays is the 7-day retention spec.md §6 specifies for
// ".log/{database_name}.log".
const RetainDays = 7

// New builds a logrus.Logger writing to both stderr and a daily-rotated
// file under dir/.log/{databaseName}.log, retained for RetainDays.
// lumberjack itself rotates on size; a daily ticker additionally forces a
// rotation at midnight so log boundaries line up with calendar days
// regardless of traffic volume.
func New(dir, databaseName string) (*logrus.Logger, func(), error) {
	path := fmt.Sprintf("%s/.log/%s.log", dir, databaseName)
	rotator := &lumberjack.Logger{
		Filename: path,
		MaxAge:   RetainDays,
		Compress: false,
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(io.MultiWriter(os.Stderr, rotator))

	stop := make(chan struct{})
	go dailyRotate(rotator, stop)

	closer := func() {
		close(stop)
		_ = rotator.Close()
	}
	return logger, closer, nil
}

func dailyRotate(rotator *lumberjack.Logger, stop chan struct{}) {
	for {
		next := nextMidnight()
		select {
		case <-stop:
			return
		case <-time.After(time.Until(next)):
			_ = rotator.Rotate()
		}
	}
}

func nextMidnight() time.Time {
	now := time.Now()
	tomorrow := now.AddDate(0, 0, 1)
	return time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 0, 0, 0, 0, tomorrow.Location())
}
