/*
   GBShooper - Game Boy flash cart interface
   Copyright (c) 2022, Alexander Vollschwitz

   This file is part of GBShooper.

   GBShooper is free software: you can redistribute it and/or modify
   it under the terms of the GNU General Public License as published by
   the Free Software Foundation, either version 3 of the License, or
   (at your option) any later version.

   GBShooper is distributed in the hope that it will be useful,
   but WITHOUT ANY WARRANTY; without even the implied warranty of
   MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
   GNU General Public License for more details.

   You should have received a copy of the GNU General Public License
   along with GBShooper. If not, see <http://www.gnu.org/licenses/>.
*/

package run

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/xelalexv/gbshooper/pkg/flasher"
	"github.com/xelalexv/gbshooper/pkg/transport"
)

// EnvPrefix is prepended to the environment variable names of settings.
const EnvPrefix = "GBSHOOPER_"

// ErrOperation is returned by runners when a device operation failed. It is
// the message users of the GB Shooper have come to know.
var ErrOperation = errors.New("FFFFUUUU, Error in operation.")

var runnerHelpEpilogue = `- Settings can also be given as environment variables, by prepending GBSHOOPER_
  to the upper case setting name, and replacing - with _, e.g. GBSHOOPER_PORT.
  They can also be placed in a YAML config file given with --config.

- If no port is given, the GB Shooper is located by its USB identity.

`

/*
	Runner is the base of all commands. It wraps a cobra command, and manages
	the command's settings, which can be given as flags, environment variables,
	or in a config file, in that order of precedence. Concrete commands embed
	a Runner and register their settings with AddSetting.
*/
type Runner struct {
	cobra.Command
	//
	LogLevel     string
	Config       string
	Port         string
	Backend      string
	ReplyTimeout time.Duration
	EraseTimeout time.Duration
	PollInterval time.Duration
	Address      string
	//
	args     *[]string
	settings []*setting
	viper    *viper.Viper
	opener   transport.Opener
}

//
type setting struct {
	target   interface{}
	name     string
	required bool
}

// NewRunner creates a runner. prologue and epilogue are added to the help
// output before and after the flag usage. exec is called when the command
// runs, with the positional arguments available via arg.
func NewRunner(use, short, long, prologue, epilogue string,
	exec func() error) *Runner {

	args := &[]string{}

	r := &Runner{
		args:  args,
		viper: viper.New(),
	}

	r.Command = cobra.Command{
		Use:           use,
		Short:         short,
		Long:          long,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, a []string) error {
			*args = a
			return exec()
		},
	}

	// accept underscores in flag names, as in the environment variables
	r.Command.Flags().SetNormalizeFunc(
		func(f *pflag.FlagSet, name string) pflag.NormalizedName {
			return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
		})

	if prologue != "" || epilogue != "" {
		r.Command.SetUsageTemplate(
			prologue + r.Command.UsageTemplate() + "\n" + epilogue)
	}

	return r
}

// AddBaseSettings adds the settings every command needs for talking to the
// device.
func (r *Runner) AddBaseSettings() {
	r.AddSetting(&r.LogLevel, "log-level", "", "LOG_LEVEL", "info",
		"log level: trace, debug, info, warn, error", false)
	r.AddSetting(&r.Config, "config", "", "CONFIG", nil,
		"YAML config file with settings", false)
	r.AddSetting(&r.Port, "port", "p", "PORT", nil,
		"serial port of the GB Shooper, skips USB discovery", false)
	r.AddSetting(&r.Backend, "backend", "", "BACKEND", transport.BackendBugst,
		"serial library, bugst or jacobsa", false)
	r.AddSetting(&r.ReplyTimeout, "reply-timeout", "", "REPLY_TIMEOUT",
		3*time.Second, "how long to wait for replies from the device", false)
	r.AddSetting(&r.EraseTimeout, "erase-timeout", "", "ERASE_TIMEOUT",
		60*time.Second, "how long to wait for the flash erase to complete", false)
	r.AddSetting(&r.PollInterval, "poll-interval", "", "POLL_INTERVAL",
		100*time.Millisecond, "progress refresh interval", false)
}

// AddSetting registers a setting. target is a pointer to the field receiving
// the value. env is the environment variable name without prefix, and may be
// empty. def is the default value, nil for the zero value.
func (r *Runner) AddSetting(target interface{}, name, short, env string,
	def interface{}, help string, required bool) {

	flags := r.Command.Flags()

	switch t := target.(type) {

	case *string:
		d := ""
		if def != nil {
			d = def.(string)
		}
		flags.StringVarP(t, name, short, d, help)

	case *int:
		d := 0
		if def != nil {
			d = def.(int)
		}
		flags.IntVarP(t, name, short, d, help)

	case *bool:
		d := false
		if def != nil {
			d = def.(bool)
		}
		flags.BoolVarP(t, name, short, d, help)

	case *time.Duration:
		var d time.Duration
		if def != nil {
			d = def.(time.Duration)
		}
		flags.DurationVarP(t, name, short, d, help)

	default:
		panic(fmt.Sprintf("unsupported setting type for %s: %T", name, target))
	}

	if err := r.viper.BindPFlag(name, flags.Lookup(name)); err != nil {
		panic(fmt.Sprintf("cannot bind setting %s: %v", name, err))
	}
	if env != "" {
		if err := r.viper.BindEnv(name, EnvPrefix+env); err != nil {
			panic(fmt.Sprintf("cannot bind environment for %s: %v", name, err))
		}
	}

	r.settings = append(r.settings, &setting{
		target: target, name: name, required: required})
}

// ParseSettings fills all registered settings, and applies the log level.
// Explicitly given flags win over environment, which wins over config file.
func (r *Runner) ParseSettings() error {

	if cfg := r.viper.GetString("config"); cfg != "" {
		r.viper.SetConfigFile(cfg)
		if err := r.viper.ReadInConfig(); err != nil {
			return fmt.Errorf("cannot read config file %s: %v", cfg, err)
		}
	}

	var missing []string

	for _, s := range r.settings {
		if s.required && !r.IsSet(s.name) {
			missing = append(missing, s.name)
			continue
		}
		switch t := s.target.(type) {
		case *string:
			*t = r.viper.GetString(s.name)
		case *int:
			*t = r.viper.GetInt(s.name)
		case *bool:
			*t = r.viper.GetBool(s.name)
		case *time.Duration:
			*t = r.viper.GetDuration(s.name)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s",
			strings.Join(missing, ", "))
	}

	if r.LogLevel != "" {
		level, err := log.ParseLevel(r.LogLevel)
		if err != nil {
			return fmt.Errorf("invalid log level: %v", err)
		}
		log.SetLevel(level)
	}

	if !transport.ValidBackend(r.Backend) {
		return fmt.Errorf("unknown serial backend: %s", r.Backend)
	}

	return nil
}

// IsSet tells whether setting name was explicitly given, as flag, via
// environment, or in the config file.
func (r *Runner) IsSet(name string) bool {
	return r.viper.IsSet(name)
}

// arg returns positional argument ix of the current invocation, or the empty
// string if there is no such argument.
func (r *Runner) arg(ix int) string {
	if ix < len(*r.args) {
		return (*r.args)[ix]
	}
	return ""
}

//
func (r *Runner) out() io.Writer {
	return r.Command.OutOrStdout()
}

//
func (r *Runner) newFlasher() *flasher.Flasher {

	o := r.opener
	if o == nil {
		o = transport.NewSerialOpener(transport.DefaultIdentity, r.Port, r.Backend)
	}

	return flasher.New(o,
		flasher.WithReplyTimeout(r.ReplyTimeout),
		flasher.WithEraseTimeout(r.EraseTimeout))
}

/*
	runJob runs op on job in the background, and reports progress until it is
	done. Before and after, the given messages are printed. Percentages are
	printed with carriage return, so they overwrite each other.
*/
func (r *Runner) runJob(f *flasher.Flasher, op flasher.Operation,
	job *flasher.Job, before, after string, percent bool) error {

	fmt.Fprintln(r.out(), before)
	f.Start(op, job)

	var report func(int)
	if percent {
		report = func(p int) { fmt.Fprintf(r.out(), "%d%%\r", p) }
	}

	interval := r.PollInterval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}

	if res := job.Poll(interval, report); !res.IsOK() {
		fmt.Fprintln(r.out())
		log.WithField("operation", op).Errorf("result: %s", res)
		return ErrOperation
	}

	if percent {
		fmt.Fprintln(r.out(), "100%")
	}
	fmt.Fprintln(r.out(), after)
	return nil
}
