package util

import "github.com/spf13/cobra"

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Options holds every flag accepted by the compiler, populated by cobra/pflag before compilation
// starts.
type Options struct {
	Src    string // Path to input source file.
	Out    string // Path to output file.
	Verbose            bool // -v: print the lowering trace as it runs.
	StringsAsCharArray bool // -s
	FlattenArrays      bool // -a
	CharsAsCodepoints  bool // -c
	CharsAsNumeric     bool // -C, implies CharsAsCodepoints
	GarbageLocals      bool // --garbage-initialized-locals
	NoPrelude          bool
	NoMain             bool
	FuckIt             bool // --fuck-it: emit despite errors.
}

// ---------------------
// ----- Constants -----
// ---------------------

const appVersion = "sslc 1.0"

// ---------------------
// ----- functions -----
// ---------------------

// ParseArgs builds the root cobra command and parses os.Args through it. run is invoked with the
// populated Options once flags have parsed successfully; the returned error is the parse error or
// run's error.
func ParseArgs(run func(Options) error) error {
	opt := Options{}
	cmd := &cobra.Command{
		Use:           "sslc",
		Short:         "Compile a stack-oriented SSL program to register-machine RMA assembly.",
		Version:       appVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opt.CharsAsNumeric {
				opt.CharsAsCodepoints = true
			}
			return run(opt)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opt.Src, "input-file", "i", "", "path to the input SSL source file")
	flags.StringVarP(&opt.Out, "output-file", "o", "", "path to the output RMA file")
	flags.BoolVarP(&opt.StringsAsCharArray, "strings-as-char-array", "s", false, "emit strings as character arrays")
	flags.BoolVarP(&opt.FlattenArrays, "flatten-arrays", "a", false, "flatten arrays into individual data words")
	flags.BoolVarP(&opt.CharsAsCodepoints, "chars-as-codepoints", "c", false, "emit characters as raw codepoints")
	flags.BoolVarP(&opt.CharsAsNumeric, "chars-as-numeric", "C", false, "emit characters as numeric literals (implies -c)")
	flags.BoolVarP(&opt.Verbose, "verbose", "v", false, "print the lowering trace as it runs")
	flags.BoolVar(&opt.GarbageLocals, "garbage-initialized-locals", false, "leave local slots uninitialized instead of zeroing them")
	flags.BoolVar(&opt.NoPrelude, "no-prelude", false, "do not prepend the standard prelude unit")
	flags.BoolVar(&opt.NoMain, "no-main", false, "do not require or call a $main function")
	flags.BoolVar(&opt.FuckIt, "fuck-it", false, "emit output despite compilation errors")
	_ = cmd.MarkFlagRequired("input-file")
	_ = cmd.MarkFlagRequired("output-file")

	return cmd.Execute()
}
