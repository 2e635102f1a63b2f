package scheduler

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // named zones must resolve on hosts without a zoneinfo database

	"github.com/cockroachdb/errors"
	"github.com/robfig/cron/v3"
)

// cronParser accepts standard 5-field expressions and descriptors like "@daily".
var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ParseSchedule parses a cron expression.
func ParseSchedule(expr string) (cron.Schedule, error) {
	return cronParser.Parse(expr)
}

// CheckSchedule parses expr and confirms it fires at least once after from.
func CheckSchedule(expr string, from time.Time) error {
	s, err := ParseSchedule(expr)
	if err != nil {
		return errors.Wrapf(ErrInvalidSchedule, "expression %q: %v", expr, err)
	}
	if s.Next(from).IsZero() {
		return errors.Wrapf(ErrInvalidSchedule, "expression %q never fires", expr)
	}
	return nil
}

// LoadLocation resolves an IANA zone name. The host's local zone is
// rejected: schedules must not depend on how the machine is configured.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" || strings.EqualFold(name, "Local") {
		return nil, errors.WithHint(
			errors.Newf("scheduler: timezone %q is not a fixed zone", name),
			"set scheduler.timezone to an IANA name such as Asia/Shanghai",
		)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, errors.Wrapf(err, "scheduler: load timezone %q", name)
	}
	return loc, nil
}

// Describe renders a schedule for humans, e.g.
// cron[minute='0', hour='2', day='*', month='*', day_of_week='*', timezone='Asia/Shanghai'].
func Describe(expr string, loc *time.Location) string {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return fmt.Sprintf("cron[%s, timezone='%s']", strings.TrimSpace(expr), loc)
	}
	return fmt.Sprintf("cron[minute='%s', hour='%s', day='%s', month='%s', day_of_week='%s', timezone='%s']",
		fields[0], fields[1], fields[2], fields[3], fields[4], loc)
}
