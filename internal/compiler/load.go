package compiler

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/mamdani/internal/ir"
)

// RuleBasePath is the top-level CUE field holding rule bases by name.
const RuleBasePath = "rulebase"

// LoadDir builds the CUE package in dir. A path to a single .cue file is
// also accepted.
func LoadDir(path string) (cue.Value, error) {
	info, err := os.Stat(path)
	if err != nil {
		return cue.Value{}, err
	}

	ctx := cuecontext.New()
	if !info.IsDir() {
		src, err := os.ReadFile(path)
		if err != nil {
			return cue.Value{}, err
		}
		v := ctx.CompileBytes(src, cue.Filename(path))
		if err := v.Err(); err != nil {
			return cue.Value{}, formatCUEError(err)
		}
		return v, nil
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: path})
	if len(instances) == 0 {
		return cue.Value{}, fmt.Errorf("no CUE instances in %s", path)
	}
	if err := instances[0].Err; err != nil {
		return cue.Value{}, fmt.Errorf("loading CUE files: %w", err)
	}
	v := ctx.BuildInstance(instances[0])
	if err := v.Err(); err != nil {
		return cue.Value{}, formatCUEError(err)
	}
	return v, nil
}

// CompileAll compiles every rulebase.<name> entry of v in declaration order.
// Entries that fail are reported in errs and skipped.
func CompileAll(v cue.Value) (specs []*ir.RuleBaseSpec, errs []error) {
	rbVal := v.LookupPath(cue.ParsePath(RuleBasePath))
	if !rbVal.Exists() {
		return nil, []error{&CompileError{
			Field:   RuleBasePath,
			Message: "no rule bases declared",
			Pos:     v.Pos(),
		}}
	}

	iter, err := rbVal.Fields()
	if err != nil {
		return nil, []error{formatCUEError(err)}
	}
	for iter.Next() {
		spec, err := CompileRuleBase(iter.Value())
		if err != nil {
			errs = append(errs, fmt.Errorf("rulebase %s: %w", iter.Label(), err))
			continue
		}
		specs = append(specs, spec)
	}
	return specs, errs
}

// LoadRuleBase loads path and returns the rule base called name, or the only
// one when name is empty.
func LoadRuleBase(path, name string) (*ir.RuleBaseSpec, error) {
	v, err := LoadDir(path)
	if err != nil {
		return nil, err
	}
	specs, errs := CompileAll(v)
	if len(errs) > 0 {
		return nil, errs[0]
	}
	if name == "" {
		if len(specs) != 1 {
			return nil, fmt.Errorf("%s declares %d rule bases; pick one by name", path, len(specs))
		}
		return specs[0], nil
	}
	for _, s := range specs {
		if s.Name == name {
			return s, nil
		}
	}
	return nil, fmt.Errorf("rule base %q not found in %s", name, path)
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
