package commands

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"os/exec"
	"os/signal"
	"slices"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/marmos91/ephemera/internal/logger"
	"github.com/spf13/cobra"
)

var (
	execWrite    string
	execEnvFiles []string
)

var execCmd = &cobra.Command{
	Use:   "exec [flags] -- COMMAND [ARGS...]",
	Short: "Run a command against ephemeral backing services",
	Long: `Start the backing services a settings file needs, run COMMAND with
connection variables in its environment, then stop everything and exit with
COMMAND's exit code.

The child sees <PREFIX>_<KIND>_HOST, _PORT and _URL for every service and,
with --write, <PREFIX>_SETTINGS pointing at the patched settings file.

Examples:
  # Run the test suite
  ephemera exec -- go test ./...

  # Hand a patched settings file to the application
  ephemera exec --write /tmp/settings.yaml -- ./manage.py test

  # Load extra variables first
  ephemera exec --env-file .env.ci -- make integration`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExec,
}

func init() {
	addSettingsFlags(execCmd)
	execCmd.Flags().StringVarP(&execWrite, "write", "w", "", "Write the patched settings to this file")
	execCmd.Flags().StringArrayVar(&execEnvFiles, "env-file", nil, "Load extra variables from a dotenv file (repeatable)")
}

func runExec(cmd *cobra.Command, args []string) error {
	var extra map[string]string
	if len(execEnvFiles) > 0 {
		var err error
		if extra, err = godotenv.Read(execEnvFiles...); err != nil {
			return fmt.Errorf("failed to read env file: %w", err)
		}
	}

	ctx := cmd.Context()
	prov, err := provision(ctx, execWrite)
	if prov != nil {
		defer func() {
			if stopErr := prov.close(ctx); stopErr != nil {
				PrintErr("Some services did not stop cleanly: %v", stopErr)
			}
		}()
	}
	if err != nil {
		return err
	}

	vars := prov.Env("")
	if execWrite != "" {
		vars[prov.EnvPrefix()+"_SETTINGS"] = execWrite
	}

	code, err := runChild(ctx, cmd, args, childEnv(os.Environ(), extra, vars))
	if err != nil {
		return err
	}
	if code != 0 {
		return &exitError{code: code}
	}
	return nil
}

// childEnv layers env files and session variables over the parent
// environment. Later layers win.
func childEnv(base []string, layers ...map[string]string) []string {
	env := slices.Clone(base)
	for _, layer := range layers {
		for _, k := range slices.Sorted(maps.Keys(layer)) {
			env = append(env, k+"="+layer[k])
		}
	}
	return env
}

// runChild runs args as a child process, forwarding SIGINT and SIGTERM to it,
// and returns its exit code.
func runChild(ctx context.Context, cmd *cobra.Command, args []string, env []string) (int, error) {
	child := exec.Command(args[0], args[1:]...)
	child.Env = env
	child.Stdin = os.Stdin
	child.Stdout = cmd.OutOrStdout()
	child.Stderr = cmd.ErrOrStderr()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)

	if err := child.Start(); err != nil {
		return 0, fmt.Errorf("failed to start %s: %w", args[0], err)
	}
	logger.InfoCtx(ctx, "Running command", "command", args[0], "pid", child.Process.Pid)

	done := make(chan error, 1)
	go func() { done <- child.Wait() }()

	for {
		select {
		case sig := <-sigs:
			_ = child.Process.Signal(sig)
		case err := <-done:
			var ee *exec.ExitError
			if errors.As(err, &ee) {
				if code := ee.ExitCode(); code >= 0 {
					return code, nil
				}
				return 1, nil
			}
			if err != nil {
				return 0, err
			}
			return 0, nil
		}
	}
}
