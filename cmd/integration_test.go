package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const passengersCSV = `Age,Fare,Sex,Survived
22,10,male,0
38,20,female,1
26,,female,1
35,40,female,1
28,50,male,0
30,60,male,0
500,30,female,1
`

// resetFlags clears values and Changed state that persist across Execute
// calls on the shared command tree.
func resetFlags(c *cobra.Command) {
	c.Flags().VisitAll(resetFlag)
	c.PersistentFlags().VisitAll(resetFlag)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func resetFlag(f *pflag.Flag) {
	if _, ok := f.Value.(pflag.SliceValue); !ok {
		_ = f.Value.Set(f.DefValue)
	}
	f.Changed = false
}

// execute runs the root command with args in a fresh HOME and returns its
// output.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	runFeatures = nil
	cfg = nil
	var out bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeCSV(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "passengers.csv")
	if err := os.WriteFile(path, []byte(passengersCSV), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

func TestCLI_RunExportsPreparedTable(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := writeCSV(t, home)
	outDir := filepath.Join(home, "out")

	out, err := execute(t, "", "run", path, "--features", "Age,Fare,Sex", "--target", "Survived",
		"--missing", "mean", "--outliers", "drop", "-o", outDir)
	if err != nil {
		t.Fatalf("run failed: %v\n%s", err, out)
	}
	for _, want := range []string{"✓ load:", "✓ handle missing values: filled 1", "✓ export: exported to"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	data, err := os.ReadFile(filepath.Join(outDir, "passengers_prepared.csv"))
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 7 {
		t.Fatalf("want header and 6 rows, got %d lines:\n%s", len(lines), data)
	}
	if !strings.Contains(lines[0], "Sex_male") || strings.Contains(lines[0], "Sex,") {
		t.Errorf("unexpected header %q", lines[0])
	}
	if _, err := os.Stat(filepath.Join(outDir, "passengers_prepared.manifest.json")); err != nil {
		t.Errorf("manifest: %v", err)
	}
}

func TestCLI_RunRequiresRoles(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := writeCSV(t, home)
	if _, err := execute(t, "", "run", path); err == nil {
		t.Fatalf("expected error without --features/--target")
	}
}

func TestCLI_RunCancelStrategyStops(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := writeCSV(t, home)
	outDir := filepath.Join(home, "out")
	_, err := execute(t, "", "run", path, "--features", "Age,Sex", "--target", "Survived",
		"--encoding", "cancel", "-o", outDir)
	if err == nil || !strings.Contains(err.Error(), "cancelled") {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, "passengers_prepared.csv")); !os.IsNotExist(err) {
		t.Errorf("nothing should be exported after a cancelled stage: %v", err)
	}
}

func TestCLI_ConfigSetAndShow(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	if out, err := execute(t, "", "config", "set", "missing_strategy", "median"); err != nil {
		t.Fatalf("config set failed: %v\n%s", err, out)
	}
	if _, err := os.Stat(filepath.Join(home, ".tabprep", "config.yaml")); err != nil {
		t.Fatalf("config not saved: %v", err)
	}
	out, err := execute(t, "", "config", "show")
	if err != nil {
		t.Fatalf("config show failed: %v", err)
	}
	if !strings.Contains(out, "missing_strategy: median") {
		t.Errorf("saved value not shown:\n%s", out)
	}
	if _, err := execute(t, "", "config", "set", "scaling_strategy", "robust"); err == nil {
		t.Errorf("expected invalid strategy to be rejected")
	}
	if _, err := execute(t, "", "config", "set", "api_key", "x"); err == nil {
		t.Errorf("expected unknown key to be rejected")
	}
}

func TestCLI_Inspect(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := writeCSV(t, home)

	out, err := execute(t, "", "inspect", path)
	if err != nil {
		t.Fatalf("inspect failed: %v", err)
	}
	for _, want := range []string{"Age", "Fare", "Survived"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}

	report := filepath.Join(home, "reports", "passengers.md")
	if _, err := execute(t, "", "inspect", path, "-o", report); err != nil {
		t.Fatalf("inspect -o failed: %v", err)
	}
	if _, err := os.Stat(report); err != nil {
		t.Errorf("report not written: %v", err)
	}

	out, err = execute(t, "", "inspect", "--list", path)
	if err != nil {
		t.Fatalf("inspect --list failed: %v", err)
	}
	if !strings.Contains(out, "(single table)") {
		t.Errorf("unexpected parts listing:\n%s", out)
	}
}

func TestCLI_InteractivePreloadsAndExits(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := writeCSV(t, home)

	out, err := execute(t, "5\n1\n", "interactive", path)
	if err != nil {
		t.Fatalf("interactive failed: %v\n%s", err, out)
	}
	for _, want := range []string{"✓ loaded 7 rows x 4 columns", "Closing tabprep..."} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
