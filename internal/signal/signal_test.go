package signal

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/husnusametd/spectra/internal/formula"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustCatalog(t *testing.T, rules ...Rule) *Catalog {
	t.Helper()
	c, ruleErrs, err := Compile(rules)
	require.NoError(t, err)
	require.Empty(t, ruleErrs)
	return c
}

func TestEvaluate_ConvictionTable(t *testing.T) {
	snap := map[string]float64{"x": 1}
	cases := []struct {
		name      string
		rule      Rule
		satisfied bool
		want      Conviction
		score     int
	}{
		{"both true", Rule{Name: "r", Primary: "x > 0", Confirm: "x < 2"}, true, ConvictionHigh, 3},
		{"primary only, no confirm", Rule{Name: "r", Primary: "x > 0"}, true, ConvictionMedium, 2},
		{"primary true, confirm false", Rule{Name: "r", Primary: "x > 0", Confirm: "x > 2"}, false, ConvictionMedium, 2},
		{"primary false, confirm true", Rule{Name: "r", Primary: "x > 5", Confirm: "x < 2"}, false, ConvictionLow, 1},
		{"primary false, confirm false", Rule{Name: "r", Primary: "x > 5", Confirm: "x > 2"}, false, ConvictionLow, 0},
		{"primary false, no confirm", Rule{Name: "r", Primary: "x > 5"}, false, ConvictionLow, 0},
		{"confirm only", Rule{Name: "r", Confirm: "x < 2"}, true, ConvictionLow, 1},
		{"no formulas", Rule{Name: "r"}, true, ConvictionLow, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			verdicts := mustCatalog(t, tc.rule).Evaluate(snap, nil)
			require.Len(t, verdicts, 1)
			assert.Equal(t, tc.satisfied, verdicts[0].Satisfied)
			assert.Equal(t, tc.want, verdicts[0].Conviction)
			assert.Equal(t, tc.score, verdicts[0].Score)
			assert.NoError(t, verdicts[0].Err)
		})
	}
}

func TestEvaluate_MissingFeatureDoesNotAbortCycle(t *testing.T) {
	var hooked []string
	c, _, err := Compile([]Rule{
		{Name: "broken", Primary: "Missing_4H > 10", Confirm: "x > 0"},
		{Name: "fine", Primary: "x > 0"},
	}, WithErrorHook(func(rule string, err error) { hooked = append(hooked, rule) }))
	require.NoError(t, err)

	verdicts := c.Evaluate(map[string]float64{"x": 1}, nil)
	require.Len(t, verdicts, 2)

	assert.Equal(t, "broken", verdicts[0].Name)
	assert.False(t, verdicts[0].Satisfied)
	assert.Equal(t, ConvictionLow, verdicts[0].Conviction)
	var evalErr *formula.EvaluationError
	assert.ErrorAs(t, verdicts[0].Err, &evalErr)

	assert.True(t, verdicts[1].Satisfied)
	assert.Equal(t, ConvictionMedium, verdicts[1].Conviction)
	assert.Equal(t, []string{"broken"}, hooked)
}

func TestEvaluate_MissingThresholdMarksRuleUnsatisfied(t *testing.T) {
	c := mustCatalog(t, Rule{Name: "oversold", Primary: "RSI_4H < cfg.rsi_oversold"})
	verdicts := c.Evaluate(map[string]float64{"RSI_4H": 10}, map[string]float64{})
	assert.False(t, verdicts[0].Satisfied)
	assert.Error(t, verdicts[0].Err)

	verdicts = c.Evaluate(map[string]float64{"RSI_4H": 10}, map[string]float64{"rsi_oversold": 30})
	assert.True(t, verdicts[0].Satisfied)
}

func TestEvaluate_NilSnapshot(t *testing.T) {
	c := mustCatalog(t, Rule{Name: "absent", Primary: "not Price"})
	verdicts := c.Evaluate(nil, nil)
	assert.True(t, verdicts[0].Satisfied)
}

func TestCompile_BrokenSubFormulaIsDisabled(t *testing.T) {
	c, ruleErrs, err := Compile([]Rule{
		{Name: "calls", Primary: "sma(Price) > 1", Confirm: "x > 0"},
		{Name: "ok", Primary: "x > 0", Confirm: "x >"},
	})
	require.NoError(t, err)
	require.Len(t, ruleErrs, 2)

	assert.Equal(t, "calls", ruleErrs[0].Rule)
	assert.Equal(t, PartPrimary, ruleErrs[0].Part)
	assert.Equal(t, "ok", ruleErrs[1].Rule)
	assert.Equal(t, PartConfirm, ruleErrs[1].Part)
	var compileErr *formula.CompileError
	assert.ErrorAs(t, ruleErrs[0], &compileErr)
	assert.Contains(t, ruleErrs[0].Error(), "calls")

	verdicts := c.Evaluate(map[string]float64{"x": 1}, nil)
	// Disabled primary is vacuous: confirm alone decides satisfaction.
	assert.True(t, verdicts[0].Satisfied)
	assert.Equal(t, ConvictionLow, verdicts[0].Conviction)
	assert.True(t, verdicts[1].Satisfied)
	assert.Equal(t, ConvictionMedium, verdicts[1].Conviction)
}

func TestCompile_CatalogErrors(t *testing.T) {
	_, _, err := Compile(nil)
	assert.ErrorIs(t, err, ErrEmptyCatalog)

	_, _, err = Compile([]Rule{{Name: "a"}, {Name: "a"}})
	assert.ErrorIs(t, err, ErrDuplicateRule)

	_, _, err = Compile([]Rule{{Primary: "x > 1"}})
	assert.Error(t, err)
}

func TestCatalog_OrderIsPriority(t *testing.T) {
	c := mustCatalog(t,
		Rule{Name: "first", Primary: "x > 5"},
		Rule{Name: "second", Primary: "x > 0"},
		Rule{Name: "third", Primary: "x > 0", Confirm: "x < 2"},
	)
	assert.Equal(t, []string{"first", "second", "third"}, c.Names())

	verdicts := c.Evaluate(map[string]float64{"x": 1}, nil)
	best, ok := FirstSatisfied(verdicts)
	require.True(t, ok)
	assert.Equal(t, "second", best.Name)
	assert.Len(t, Satisfied(verdicts), 2)

	_, ok = FirstSatisfied(c.Evaluate(map[string]float64{"x": -1}, nil))
	assert.False(t, ok)
}

func TestCatalog_Refs(t *testing.T) {
	c := mustCatalog(t,
		Rule{Name: "a", Primary: "RSI < cfg.rsi_oversold", Confirm: "Vol_Z > cfg.vol_zscore"},
		Rule{Name: "b", Primary: "RSI > cfg.rsi_overbought & Vol_Z > cfg.vol_zscore"},
	)
	assert.Equal(t, []string{"rsi_oversold", "vol_zscore", "rsi_overbought"}, c.ThresholdRefs())
	assert.Equal(t, []string{"RSI", "Vol_Z"}, c.FeatureRefs())
}

func TestCatalog_ConcurrentEvaluate(t *testing.T) {
	c := mustCatalog(t, Rule{Name: "r", Primary: "x > cfg.t", Confirm: "x < 100"})
	th := map[string]float64{"t": 10}
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(x float64) {
			defer wg.Done()
			v := c.Evaluate(map[string]float64{"x": x}, th)
			assert.Equal(t, x > 10, v[0].Satisfied)
		}(float64(i))
	}
	wg.Wait()
}

func TestConviction_Text(t *testing.T) {
	for _, c := range []Conviction{ConvictionLow, ConvictionMedium, ConvictionHigh} {
		b, err := c.MarshalText()
		require.NoError(t, err)
		var back Conviction
		require.NoError(t, back.UnmarshalText(b))
		assert.Equal(t, c, back)
	}
	_, err := ParseConviction("extreme")
	assert.Error(t, err)
}

func TestParseSpec_MappingKeepsOrder(t *testing.T) {
	raw := []byte(`
version: 2
signals:
  zeta_breakout:
    primary: "Vol_Z_1H > cfg.vol_z_breakout_1h"
  alpha_pullback:
    description: pullback into the 21 EMA
    primary: "Price_4H > EMA21_4H & Price_4H < EMA50_4H"
    confirm: "RSI_4H < cfg.rsi_oversold"
  empty_rule:
`)
	rules, err := ParseSpec(raw)
	require.NoError(t, err)
	require.Len(t, rules, 3)
	assert.Equal(t, "zeta_breakout", rules[0].Name)
	assert.Equal(t, "alpha_pullback", rules[1].Name)
	assert.Equal(t, "RSI_4H < cfg.rsi_oversold", rules[1].Confirm)
	assert.Equal(t, "pullback into the 21 EMA", rules[1].Description)
	assert.Equal(t, Rule{Name: "empty_rule"}, rules[2])
}

func TestParseSpec_List(t *testing.T) {
	raw := []byte(`
signals:
  - name: one
    primary: "x > 1"
  - name: two
    confirm: "y < 2"
`)
	rules, err := ParseSpec(raw)
	require.NoError(t, err)
	assert.Equal(t, []Rule{{Name: "one", Primary: "x > 1"}, {Name: "two", Confirm: "y < 2"}}, rules)
}

func TestParseSpec_Invalid(t *testing.T) {
	cases := map[string]string{
		"missing section":   "other: 1\n",
		"unknown field":     "signals:\n  a:\n    primry: \"x > 1\"\n",
		"numeric formula":   "signals:\n  a:\n    primary: 5\n",
		"list without name": "signals:\n  - primary: \"x > 1\"\n",
		"empty mapping":     "signals: {}\n",
		"scalar":            "signals: nope\n",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSpec([]byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestLoadSpec(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spec.yaml")
	require.NoError(t, os.WriteFile(path, []byte("signals:\n  a:\n    primary: \"x > 1\"\n"), 0o644))
	rules, err := LoadSpec(path)
	require.NoError(t, err)
	assert.Len(t, rules, 1)

	_, err = LoadSpec(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
