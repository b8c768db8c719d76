package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/medtext-cli/internal/bundle"
	"github.com/KaramelBytes/medtext-cli/internal/report"
	"github.com/KaramelBytes/medtext-cli/internal/textnorm"
)

// resetFlags restores every flag to its default so state does not leak
// between invocations of the shared root command.
func resetFlags(c *cobra.Command) {
	reset := func(fl *pflag.Flag) {
		if sv, ok := fl.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = fl.Value.Set(fl.DefValue)
		}
		fl.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// runCmd is a helper to execute the root command with args and capture stdout.
func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	out, err := tryCmd(args...)
	if err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
	return out
}

func tryCmd(args ...string) (string, error) {
	resetFlags(rootCmd)
	cfg = nil
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), err
}

func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func writeCorpus(t *testing.T, dir string, n int) string {
	t.Helper()
	onco := []string{"Tumor growth under chemotherapy", "Cancer screening with tumor markers", "Metastatic tumor imaging"}
	cardio := []string{"Heart failure and cardiac rhythm", "Coronary artery stenosis", "Cardiac arrest after artery surgery"}
	var b strings.Builder
	b.WriteString("pmid;title;abstract;source;group;Manual\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "%d;%s;Oncology cohort with tumor biopsy and chemotherapy.;PubMed;Oncological;\n", 2*i+1, onco[i%3])
		fmt.Fprintf(&b, "%d;%s;Cardiology cohort with heart monitoring and cardiac imaging.;Scopus;Cardiovascular;yes\n", 2*i+2, cardio[i%3])
	}
	path := filepath.Join(dir, "articles.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func TestCLI_Profile(t *testing.T) {
	home := isolateHome(t)
	data := writeCorpus(t, home, 6)

	out := runCmd(t, "profile", data)
	assert.Contains(t, out, "[DATASET SUMMARY]")
	assert.Contains(t, out, "[TOP WORDS]")

	mdPath := filepath.Join(home, "profile.md")
	charts := filepath.Join(home, "charts")
	out = runCmd(t, "profile", data, "-o", mdPath, "--charts", charts)
	assert.Contains(t, out, "✓ Wrote profile to")
	_, err := os.Stat(mdPath)
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(charts, "sources.png"))
	require.NoError(t, err)
}

func TestCLI_ProfileBatchAvoidsOverwrite(t *testing.T) {
	home := isolateHome(t)
	d1, d2 := filepath.Join(home, "d1"), filepath.Join(home, "d2")
	require.NoError(t, os.MkdirAll(d1, 0o755))
	require.NoError(t, os.MkdirAll(d2, 0o755))
	writeCorpus(t, d1, 3)
	writeCorpus(t, d2, 3)

	outDir := filepath.Join(home, "profiles")
	out := runCmd(t, "profile-batch", filepath.Join(home, "d*", "articles.csv"), "-o", outDir)
	assert.Contains(t, out, "[2/2] Processing articles.csv")
	for _, name := range []string{"articles.profile.md", "articles__2.profile.md"} {
		_, err := os.Stat(filepath.Join(outDir, name))
		assert.NoError(t, err, name)
	}

	_, err := tryCmd("profile-batch", filepath.Join(home, "nothing*.csv"))
	assert.ErrorContains(t, err, "no input files matched")
}

func TestCLI_Train_Predict_History(t *testing.T) {
	home := isolateHome(t)
	data := writeCorpus(t, home, 20)
	outDir := filepath.Join(home, "out")

	out := runCmd(t, "train", data, "--out", outDir, "--families", "naive_bayes,linear_svm", "--folds", "3", "--no-charts")
	assert.Contains(t, out, "✓ Selected")
	for _, name := range []string{bundle.ModelFile, bundle.StopwordsFile, report.MetricsJSON, report.MetricsMarkdown} {
		_, err := os.Stat(filepath.Join(outDir, name))
		assert.NoError(t, err, name)
	}
	_, err := os.Stat(filepath.Join(home, ".medtext", "history.db"))
	require.NoError(t, err)

	out = runCmd(t, "predict", "-m", outDir, "Chemotherapy", "for", "a", "metastatic", "tumor")
	assert.Equal(t, "Oncological", strings.TrimSpace(out))

	out = runCmd(t, "predict", "-m", bundle.ModelPath(outDir), "--file", data)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 41)
	assert.Equal(t, "id;title;predicted", lines[0])

	out = runCmd(t, "history")
	assert.Contains(t, out, "FAMILY")
	assert.Contains(t, out, data)

	// a run with history disabled is not recorded
	runCmd(t, "train", data, "--out", outDir, "--families", "naive_bayes", "--folds", "3", "--no-charts", "--no-history")
	out = runCmd(t, "history")
	assert.Equal(t, 2, len(strings.Split(strings.TrimSpace(out), "\n")))
}

func TestCLI_TrainErrors(t *testing.T) {
	home := isolateHome(t)
	data := writeCorpus(t, home, 5)

	_, err := tryCmd("train", data, "--families", "deep_net")
	assert.ErrorContains(t, err, "unknown family")

	_, err = tryCmd("train", data, "--folds", "1", "--no-history")
	assert.ErrorContains(t, err, "selection.folds")

	bad := filepath.Join(home, "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte("pmid;title\n1;x\n"), 0o644))
	_, err = tryCmd("train", bad, "--no-history")
	assert.ErrorContains(t, err, "load stage")
}

func TestCLI_ConfigSetShow(t *testing.T) {
	home := isolateHome(t)

	runCmd(t, "config", "set", "selection.folds", "7")
	runCmd(t, "config", "set", "data.label_policy", "drop_multi")
	_, err := os.Stat(filepath.Join(home, ".medtext", "config.yaml"))
	require.NoError(t, err)

	out := runCmd(t, "config", "show")
	assert.Contains(t, out, "folds: 7")
	assert.Contains(t, out, "label_policy: drop_multi")

	_, err = tryCmd("config", "set", "nope", "1")
	assert.ErrorContains(t, err, "unknown key")
	_, err = tryCmd("config", "set", "selection.scoring", "auc")
	assert.ErrorContains(t, err, "invalid selection.scoring")
}

func TestCLI_StopwordsExport(t *testing.T) {
	home := isolateHome(t)
	path := filepath.Join(home, "stop.yaml")

	out := runCmd(t, "stopwords", "export", path)
	assert.Contains(t, out, "✓ Wrote")
	words, err := textnorm.LoadList(path)
	require.NoError(t, err)
	assert.Contains(t, words, "the")
	assert.Contains(t, words, "study")

	out = runCmd(t, "stopwords", "show")
	assert.Contains(t, out, fmt.Sprintf("%d stopwords", len(words)))
}
