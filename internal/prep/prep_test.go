package prep

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/tabprep/internal/stats"
	"github.com/KaramelBytes/tabprep/internal/table"
)

func titanic(t *testing.T) *table.Table {
	t.Helper()
	tb, err := table.New(
		table.Numbers("Age", 22, 38, 26, 35, math.NaN()),
		table.Numbers("Fare", 7.25, 71.28, 7.92, 53.10, 1000.0),
		table.Texts("Sex", "male", "female", "female", "female", "male"),
		table.Texts("Embarked", "S", "C", "", "S", "Q"),
		table.Numbers("Survived", 0, 1, 1, 1, 0),
	)
	require.NoError(t, err)
	return tb
}

var feats = []string{"Age", "Fare", "Sex", "Embarked"}

func floats(t *testing.T, tb *table.Table, name string) []float64 {
	t.Helper()
	c, ok := tb.Column(name)
	require.True(t, ok, "column %s", name)
	return c.Floats()
}

func TestClassify(t *testing.T) {
	tb := titanic(t)
	require.NoError(t, tb.AppendColumn(table.Bools("Flag", true, false, true, false, false)))
	c := Classify(tb, append(feats, "Gone"), "Survived")
	assert.Equal(t, []string{"Age", "Fare"}, c.Numeric)
	assert.Equal(t, []string{"Sex", "Embarked"}, c.Categorical)
	// Survived is 0/1 but is the target.
	assert.Equal(t, []string{"Flag"}, c.Binary)
}

func TestClassifyFindsGeneratedIndicators(t *testing.T) {
	tb := titanic(t)
	out, err := EncodeCategorical(tb, []string{"Sex"}, EncodeOneHot)
	require.NoError(t, err)
	c := Classify(out.Table, feats, "Survived")
	assert.Contains(t, c.Binary, "Sex_male")
	assert.Contains(t, c.Binary, "Sex_female")
	assert.NotContains(t, c.Categorical, "Sex")
}

func TestHandleMissingNoNullsIsNoop(t *testing.T) {
	tb := titanic(t)
	for _, s := range []MissingStrategy{{Kind: MissingDrop}, {Kind: MissingMean}, {Kind: MissingCancel}} {
		out, err := HandleMissing(tb, []string{"Fare", "Sex"}, "Survived", s)
		require.NoError(t, err)
		assert.Same(t, tb, out.Table)
		assert.False(t, out.Changed)
	}
}

func TestMeanFillAge(t *testing.T) {
	tb := titanic(t)
	out, err := HandleMissing(tb, []string{"Age"}, "Survived", MissingStrategy{Kind: MissingMean})
	require.NoError(t, err)
	assert.InDelta(t, 30.25, floats(t, out.Table, "Age")[4], 1e-12)
	// input untouched
	assert.True(t, math.IsNaN(floats(t, tb, "Age")[4]))
}

func TestMeanFillSkipsText(t *testing.T) {
	tb := titanic(t)
	out, err := HandleMissing(tb, feats, "Survived", MissingStrategy{Kind: MissingMedian})
	require.NoError(t, err)
	assert.Equal(t, 30.5, floats(t, out.Table, "Age")[4])
	emb, _ := out.Table.Column("Embarked")
	assert.True(t, emb.Values[2].IsNull())
	require.Len(t, out.Warnings, 1)
	assert.Contains(t, out.Warnings[0], "Embarked")
}

func TestDropRowsMissing(t *testing.T) {
	tb := titanic(t)
	out, err := HandleMissing(tb, feats, "Survived", MissingStrategy{Kind: MissingDrop})
	require.NoError(t, err)
	assert.Equal(t, 3, out.Table.Rows())
	assert.Equal(t, 5, tb.Rows())
	for _, c := range CountMissing(out.Table, feats, "Survived") {
		assert.Zero(t, c.Nulls, c.Column)
	}
}

func TestModeFill(t *testing.T) {
	tb := titanic(t)
	out, err := HandleMissing(tb, feats, "Survived", MissingStrategy{Kind: MissingMode})
	require.NoError(t, err)
	emb, _ := out.Table.Column("Embarked")
	assert.Equal(t, "S", emb.Values[2].String())
	// all Age values are distinct, so the smallest wins the tie
	assert.Equal(t, 22.0, floats(t, out.Table, "Age")[4])
}

func TestModeFillAllNullFails(t *testing.T) {
	tb, err := table.New(table.Texts("x", "", ""), table.Numbers("y", 1, 2))
	require.NoError(t, err)
	out, err := HandleMissing(tb, []string{"x"}, "y", MissingStrategy{Kind: MissingMode})
	require.ErrorIs(t, err, ErrNoValues)
	assert.Same(t, tb, out.Table)
}

func TestConstantFillAppliesToText(t *testing.T) {
	tb := titanic(t)
	out, err := HandleMissing(tb, feats, "Survived", FillConstant(0))
	require.NoError(t, err)
	emb, _ := out.Table.Column("Embarked")
	f, ok := emb.Values[2].Float()
	require.True(t, ok)
	assert.Equal(t, 0.0, f)
	assert.Equal(t, table.TypeText, emb.Type)
	age, _ := out.Table.Column("Age")
	assert.Equal(t, table.TypeNumber, age.Type)
}

func TestParseConstant(t *testing.T) {
	v, err := ParseConstant(" -1.5 ")
	require.NoError(t, err)
	assert.Equal(t, -1.5, v)
	_, err = ParseConstant("abc")
	require.ErrorIs(t, err, ErrInvalidConstant)
	_, err = ParseMissingStrategy("constant", "x")
	require.ErrorIs(t, err, ErrInvalidConstant)
}

func TestCancelReturnsOriginal(t *testing.T) {
	tb := titanic(t)
	out, err := HandleMissing(tb, feats, "Survived", MissingStrategy{Kind: MissingCancel})
	require.ErrorIs(t, err, ErrCancelled)
	assert.Same(t, tb, out.Table)

	out, err = EncodeCategorical(tb, []string{"Sex"}, EncodeCancel)
	require.ErrorIs(t, err, ErrCancelled)
	assert.Same(t, tb, out.Table)

	out, err = Scale(tb, []string{"Fare"}, ScaleCancel)
	require.ErrorIs(t, err, ErrCancelled)
	assert.Same(t, tb, out.Table)
}

func TestOneHotSex(t *testing.T) {
	tb := titanic(t)
	out, err := EncodeCategorical(tb, []string{"Sex"}, EncodeOneHot)
	require.NoError(t, err)
	res := out.Table
	assert.False(t, res.Has("Sex"))
	names := res.Names()
	assert.Equal(t, []string{"Sex_male", "Sex_female"}, names[len(names)-2:])
	male, _ := res.Column("Sex_male")
	female, _ := res.Column("Sex_female")
	for i := 0; i < res.Rows(); i++ {
		m, _ := male.Values[i].Truth()
		f, _ := female.Values[i].Truth()
		assert.True(t, m != f, "row %d must have exactly one indicator set", i)
	}
	m0, _ := male.Values[0].Truth()
	assert.True(t, m0)
}

func TestOneHotNullRowIsAllFalse(t *testing.T) {
	tb := titanic(t)
	out, err := EncodeCategorical(tb, []string{"Embarked"}, EncodeOneHot)
	require.NoError(t, err)
	for _, n := range []string{"Embarked_S", "Embarked_C", "Embarked_Q"} {
		c, ok := out.Table.Column(n)
		require.True(t, ok, n)
		b, _ := c.Values[2].Truth()
		assert.False(t, b, n)
	}
}

func TestOneHotNameCollision(t *testing.T) {
	tb, err := table.New(
		table.Texts("c", "a", "b"),
		table.Bools("c_a", true, true),
	)
	require.NoError(t, err)
	out, err := EncodeCategorical(tb, []string{"c"}, EncodeOneHot)
	require.NoError(t, err)
	assert.Equal(t, []string{"c_a", "c_a__2", "c_b"}, out.Table.Names())
}

func TestLabelEncodingIsSortedBijection(t *testing.T) {
	tb := titanic(t)
	out, err := EncodeCategorical(tb, []string{"Embarked"}, EncodeLabel)
	require.NoError(t, err)
	emb, _ := out.Table.Column("Embarked")
	assert.Equal(t, table.TypeNumber, emb.Type)
	// C=0, Q=1, S=2
	got := emb.Floats()
	assert.Equal(t, 2.0, got[0])
	assert.Equal(t, 0.0, got[1])
	assert.True(t, math.IsNaN(got[2]))
	assert.Equal(t, 2.0, got[3])
	assert.Equal(t, 1.0, got[4])
}

func TestLabelCodesNumericOrder(t *testing.T) {
	col := &table.Column{Name: "x", Type: table.TypeText, Values: []table.Value{table.Number(10), table.Number(9), table.Number(100)}}
	codes := LabelCodes(col)
	assert.Equal(t, 0, codes[table.Number(9).Key()])
	assert.Equal(t, 1, codes[table.Number(10).Key()])
	assert.Equal(t, 2, codes[table.Number(100).Key()])
}

func TestMinMax(t *testing.T) {
	tb := titanic(t)
	require.NoError(t, tb.AppendColumn(table.Numbers("Const", 3, 3, 3, math.NaN(), 3)))
	out, err := Scale(tb, []string{"Age", "Fare", "Const"}, ScaleMinMax)
	require.NoError(t, err)
	for _, n := range []string{"Age", "Fare"} {
		lo, hi := stats.MinMax(floats(t, out.Table, n))
		assert.Equal(t, 0.0, lo, n)
		assert.Equal(t, 1.0, hi, n)
	}
	assert.True(t, math.IsNaN(floats(t, out.Table, "Age")[4]))
	for _, v := range floats(t, out.Table, "Const") {
		assert.Equal(t, 0.0, v)
	}
}

func TestZScore(t *testing.T) {
	tb := titanic(t)
	require.NoError(t, tb.AppendColumn(table.Numbers("Const", 1, 1, 1, 1, 1)))
	out, err := Scale(tb, []string{"Age", "Fare", "Const"}, ScaleZScore)
	require.NoError(t, err)
	for _, n := range []string{"Age", "Fare"} {
		xs := floats(t, out.Table, n)
		assert.InDelta(t, 0.0, stats.Mean(xs), 1e-9, n)
		assert.InDelta(t, 1.0, stats.StdDev(xs), 1e-9, n)
	}
	for _, v := range floats(t, out.Table, "Const") {
		assert.Equal(t, 0.0, v)
	}
}

func TestScaleSkipsAllNull(t *testing.T) {
	tb, err := table.New(table.Numbers("x", math.NaN(), math.NaN()))
	require.NoError(t, err)
	out, err := Scale(tb, []string{"x"}, ScaleZScore)
	require.NoError(t, err)
	require.Len(t, out.Warnings, 1)
	assert.Equal(t, 2, out.Table.Rows())
}

func TestFareOutlierDrop(t *testing.T) {
	tb := titanic(t)
	r := DetectOutliers(tb, []string{"Fare"}, "Survived")
	require.Equal(t, 1, r.Total())
	assert.Equal(t, []int{4}, r.SortedRows())

	out, err := HandleOutliers(tb, r, OutlierDrop)
	require.NoError(t, err)
	assert.Equal(t, 4, out.Table.Rows())
	for _, co := range r.Columns {
		if co.Binary {
			continue
		}
		for _, v := range floats(t, out.Table, co.Column) {
			if !math.IsNaN(v) {
				assert.GreaterOrEqual(t, v, co.Lower)
				assert.LessOrEqual(t, v, co.Upper)
			}
		}
	}
}

func TestDropRowCountIsUnion(t *testing.T) {
	tb, err := table.New(
		table.Numbers("a", 1, 2, 3, 2, 1, 2, 100),
		table.Numbers("b", 5, 5, 6, 5, 6, 5, -400),
		table.Numbers("c", 1, 2, 1, 2, 1, 2, 90),
	)
	require.NoError(t, err)
	r := DetectOutliers(tb, []string{"a", "b", "c"}, "")
	union := len(r.RowSet())
	out, err := HandleOutliers(tb, r, OutlierDrop)
	require.NoError(t, err)
	assert.Equal(t, tb.Rows()-union, out.Table.Rows())
}

func TestOutlierMedianIdempotent(t *testing.T) {
	tb := titanic(t)
	first, err := HandleOutliers(tb, DetectOutliers(tb, []string{"Fare"}, "Survived"), OutlierMedian)
	require.NoError(t, err)
	assert.Equal(t, 53.10, floats(t, first.Table, "Fare")[4])

	r := DetectOutliers(first.Table, []string{"Fare"}, "Survived")
	second, err := HandleOutliers(first.Table, r, OutlierMedian)
	require.NoError(t, err)
	assert.Equal(t, floats(t, first.Table, "Fare"), floats(t, second.Table, "Fare"))
}

func TestOutlierKeepAndNone(t *testing.T) {
	tb := titanic(t)
	r := DetectOutliers(tb, []string{"Fare"}, "Survived")
	out, err := HandleOutliers(tb, r, OutlierKeep)
	require.NoError(t, err)
	assert.Same(t, tb, out.Table)

	r = DetectOutliers(tb, []string{"Age"}, "Survived")
	assert.Zero(t, r.Total())
	out, err = HandleOutliers(tb, r, OutlierCancel)
	require.NoError(t, err)
	assert.Equal(t, "no outliers found", out.Summary)
}

func flagTable(t *testing.T, flag *table.Column) *table.Table {
	t.Helper()
	tb, err := table.New(table.Numbers("x", 1, 2, 3, 4, 5), flag, table.Numbers("y", 0, 1, 0, 1, 0))
	require.NoError(t, err)
	return tb
}

func TestBinaryNullIsOutlier(t *testing.T) {
	tb := flagTable(t, &table.Column{Name: "flag", Type: table.TypeNumber, Values: []table.Value{
		table.Number(0), table.Number(1), table.Null(), table.Number(1), table.Number(0),
	}})
	r := DetectOutliers(tb, []string{"x"}, "y")
	require.Len(t, r.Columns, 2)
	flag := r.Columns[1]
	assert.Equal(t, "flag", flag.Column)
	assert.True(t, flag.Binary)
	assert.Equal(t, []int{2}, flag.Rows)
	assert.Equal(t, 1, r.Total())

	out, err := HandleOutliers(tb, r, OutlierDrop)
	require.NoError(t, err)
	assert.Equal(t, 4, out.Table.Rows())
	assert.Equal(t, []float64{1, 2, 4, 5}, floats(t, out.Table, "x"))
	// the input table is untouched
	assert.Equal(t, 5, tb.Rows())
}

func TestBinaryNullReplacedWithZero(t *testing.T) {
	tb := flagTable(t, &table.Column{Name: "flag", Type: table.TypeNumber, Values: []table.Value{
		table.Number(0), table.Number(1), table.Null(), table.Number(1), table.Number(0),
	}})
	out, err := HandleOutliers(tb, DetectOutliers(tb, []string{"x"}, "y"), OutlierMedian)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 0, 1, 0}, floats(t, out.Table, "flag"))
	col, _ := out.Table.Column("flag")
	assert.Equal(t, table.TypeNumber, col.Type)
}

func TestBinaryNullReplacedWithFalse(t *testing.T) {
	tb := flagTable(t, &table.Column{Name: "flag", Type: table.TypeBool, Values: []table.Value{
		table.Bool(true), table.Null(), table.Bool(false), table.Bool(true), table.Null(),
	}})
	r := DetectOutliers(tb, []string{"x"}, "y")
	assert.Equal(t, []int{1, 4}, r.Columns[1].Rows)
	out, err := HandleOutliers(tb, r, OutlierMedian)
	require.NoError(t, err)
	col, _ := out.Table.Column("flag")
	assert.Equal(t, table.TypeBool, col.Type)
	assert.Equal(t, []table.Value{table.Bool(true), table.Bool(false), table.Bool(false), table.Bool(true), table.Bool(false)}, col.Values)
}

func TestNumericNullIsNotOutlier(t *testing.T) {
	tb, err := table.New(table.Numbers("x", 1, 2, math.NaN(), 3, 4), table.Numbers("y", 0, 1, 0, 1, 0))
	require.NoError(t, err)
	assert.Zero(t, DetectOutliers(tb, []string{"x"}, "y").Total())
}

func TestParseStrategies(t *testing.T) {
	e, err := ParseEncodingStrategy("label")
	require.NoError(t, err)
	assert.Equal(t, EncodeLabel, e)
	s, err := ParseScalingStrategy("")
	require.NoError(t, err)
	assert.Equal(t, ScaleMinMax, s)
	o, err := ParseOutlierStrategy("median")
	require.NoError(t, err)
	assert.Equal(t, OutlierMedian, o)
	_, err = ParseOutlierStrategy("bogus")
	require.ErrorIs(t, err, ErrUnknownStrategy)
}
