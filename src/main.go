package main

import (
	"fmt"
	"os"

	"sslc/src/backend/emit"
	"sslc/src/frontend"
	"sslc/src/ir"
	"sslc/src/ir/lower"
	"sslc/src/prelude"
	"sslc/src/util"
)

// run drives the whole compilation pass for one invocation: parse every unit, merge their
// declarations into a Module, lower each stack-bodied function, and emit the final RMA text.
func run(opt util.Options) error {
	util.SetVerbose(opt.Verbose)

	src, err := util.ReadSource(opt)
	if err != nil {
		return fmt.Errorf("could not read source: %w", err)
	}

	mod := ir.NewModule()

	if !opt.NoPrelude {
		if err := parseUnit(mod, "<prelude>", prelude.Source); err != nil {
			return err
		}
	}
	if err := parseUnit(mod, opt.Src, src); err != nil {
		return err
	}

	if err := mod.Headers.CheckComplete(); err != nil {
		mod.Diags.Add(ir.Position{}, "%s", err)
	}
	if !opt.NoMain {
		main, ok := mod.Functions.Lookup("main")
		if !ok || main.Sig != (ir.Signature{Params: 0, Returns: 0}) {
			mod.Diags.Add(ir.Position{}, "no function $main with stack (0 -> 0) declared")
		}
	}
	if err := mod.Functions.CheckComplete(); err != nil {
		mod.Diags.Add(ir.Position{}, "%s", err)
	}

	mod.Finalize()

	bodies := make(map[string]string)
	lowerer := lower.New(mod, lower.Options{GarbageLocals: opt.GarbageLocals})
	for _, name := range mod.Functions.Names() {
		fn, _ := mod.Functions.Lookup(name)
		if fn.Kind != ir.BodyStackBody {
			continue
		}
		body, err := lowerer.Function(fn)
		if err != nil {
			mod.Diags.Add(fn.Pos, "%s", err)
			continue
		}
		bodies[name] = body
	}

	hadErrors := util.PrintDiagnostics(mod.Diags)
	if hadErrors && !opt.FuckIt {
		return fmt.Errorf("compilation failed with %d error(s)", mod.Diags.Len())
	}

	text, err := emit.Module(mod, bodies, lowerer.MaxRegs(), emitOptions(opt))
	if err != nil {
		if !opt.FuckIt {
			return err
		}
		util.Log.Warnf("emitting despite error: %s", err)
	}

	w := util.NewWriter()
	w.WriteString(text)
	if err := util.WriteOutput(opt, w); err != nil {
		return fmt.Errorf("could not write output: %w", err)
	}
	return nil
}

func parseUnit(mod *ir.Module, path, src string) error {
	tree, err := frontend.Parse(src)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	ir.Declare(tree, path, mod)
	return nil
}

func emitOptions(opt util.Options) emit.Options {
	return emit.Options{
		NoMain:              opt.NoMain,
		FlattenArrays:       opt.FlattenArrays,
		CharsAsCodepoints:   opt.CharsAsCodepoints,
		CharsAsNumeric:      opt.CharsAsNumeric,
		StringsAsCharArrays: opt.StringsAsCharArray,
	}
}

func main() {
	err := util.ParseArgs(func(opt util.Options) error {
		return run(opt)
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
