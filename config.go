package main

import (
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/xyproto/env/v2"
)

// Config holds the tunables of one pack run.
type Config struct {
	Section  string
	Key      byte
	MinCave  int
	ExecCave bool
}

// options are the raw command line values before validation.
type options struct {
	output   string
	section  string
	key      string
	minCave  int
	execCave bool
	debug    bool
}

// bindPackFlags registers the pack flags on fs. Defaults come from
// CAVEPACK_SECTION, CAVEPACK_KEY and CAVEPACK_MIN_CAVE when set.
func bindPackFlags(fs *pflag.FlagSet, o *options) {
	fs.StringVarP(&o.output, "output", "o", "", "output path (default <input>.packed)")
	fs.StringVarP(&o.section, "section", "s", env.Str("CAVEPACK_SECTION", ".text"), "section to encode")
	fs.StringVarP(&o.key, "key", "k", env.Str("CAVEPACK_KEY", "0xa5"), "single byte XOR key")
	fs.IntVar(&o.minCave, "min-cave", env.Int("CAVEPACK_MIN_CAVE", 0), "minimum code cave size, if larger than the stub")
	fs.BoolVar(&o.execCave, "exec-cave", false, "only place the stub in allocated, executable sections")
	fs.BoolVar(&o.debug, "debug", false, "show parsed headers, sections and the stub disassembly")
}

func (o *options) config() (Config, error) {
	key, err := parseKey(o.key)
	if err != nil {
		return Config{}, err
	}
	if o.section == "" {
		return Config{}, errors.New("empty section name")
	}
	if o.minCave < 0 {
		return Config{}, errors.Errorf("negative --min-cave %d", o.minCave)
	}
	return Config{
		Section:  o.section,
		Key:      key,
		MinCave:  o.minCave,
		ExecCave: o.execCave,
	}, nil
}

// parseKey accepts a byte in any base strconv understands (0xa5, 165, 0245).
func parseKey(s string) (byte, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid key %q", s)
	}
	return byte(v), nil
}

func outputPath(input, output string) string {
	if output != "" {
		return output
	}
	return input + ".packed"
}
