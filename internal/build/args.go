package build

import (
	"fmt"
	"path/filepath"

	"github.com/harrison/modbuild/internal/fsutil"
	"github.com/harrison/modbuild/internal/toolargs"
)

// MainCompileArgs assembles the compiler invocation for the main module group.
func (o *Orchestrator) MainCompileArgs() ([]string, error) {
	l := o.cfg.Layout
	b := toolargs.New().
		Add("-d").Add(l.MainTarget).
		Add("--module-path").AddPaths(l.Deps).
		Add("--module-source-path").Add(l.MainSource)
	if err := b.AddAll(l.MainSource, fsutil.HasExtension(o.cfg.SourceExtension)); err != nil {
		return nil, err
	}
	return b.List(), nil
}

// TestCompileArgs assembles the compiler invocation for the test module group.
// Each module directory under the test source root gets a --patch-module
// argument pointing at the main source of the same name.
func (o *Orchestrator) TestCompileArgs() ([]string, error) {
	l := o.cfg.Layout
	b := toolargs.New().
		Add("-d").Add(l.TestTarget).
		Add("--module-path").AddPaths(l.MainTarget, l.Deps).
		Add("--module-source-path").Add(l.TestSource)

	modules, err := fsutil.FindDirectoryNames(l.TestSource)
	if err != nil {
		return nil, err
	}
	for _, module := range modules {
		b.Add("--patch-module").Add(fmt.Sprintf("%s=%s", module, filepath.Join(l.MainSource, module)))
	}

	if err := b.AddAll(l.TestSource, fsutil.HasExtension(o.cfg.SourceExtension)); err != nil {
		return nil, err
	}
	return b.List(), nil
}

// UserCompileArgs assembles the compiler invocation for the user-integration module group.
func (o *Orchestrator) UserCompileArgs() ([]string, error) {
	l := o.cfg.Layout
	b := toolargs.New().
		Add("-d").Add(l.UserTarget).
		Add("--module-path").AddPaths(l.MainTarget, l.Deps).
		Add("--module-source-path").Add(l.UserSource)
	if err := b.AddAll(l.UserSource, fsutil.HasExtension(o.cfg.SourceExtension)); err != nil {
		return nil, err
	}
	return b.List(), nil
}

// TestArgs assembles one launcher invocation scanning target, the main
// output and deps for tests.
func (o *Orchestrator) TestArgs(target string) []string {
	l := o.cfg.Layout
	return toolargs.New().
		Add("-Djava.util.logging.config.file=" + o.cfg.LoggingConfig).
		Add("--module-path").AddPaths(target, l.MainTarget, l.Deps).
		Add("--add-modules").Add("ALL-MODULE-PATH").
		Add("--module").Add(o.cfg.TestLauncherModule).
		Add("--scan-module-path").
		List()
}
