package table

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample(t *testing.T) *Table {
	t.Helper()
	tb, err := New(
		Numbers("Age", 22, 38, 26, 35, math.NaN()),
		Texts("Sex", "male", "female", "female", "female", "male"),
		Bools("Survived", false, true, true, true, false),
	)
	require.NoError(t, err)
	return tb
}

func TestNewRejectsMismatchedColumns(t *testing.T) {
	_, err := New(Numbers("a", 1, 2), Numbers("b", 1))
	require.ErrorIs(t, err, ErrRowMismatch)

	_, err = New(Numbers("a", 1), Numbers("a", 2))
	require.ErrorIs(t, err, ErrDuplicateColumn)
}

func TestNumberNaNIsNull(t *testing.T) {
	tb := sample(t)
	age, ok := tb.Column("Age")
	require.True(t, ok)
	assert.True(t, age.Values[4].IsNull())
	assert.Equal(t, 1, age.NullCount())
	assert.True(t, math.IsNaN(age.Floats()[4]))
}

func TestCloneIsIndependent(t *testing.T) {
	tb := sample(t)
	cp := tb.Clone()
	c, _ := cp.Column("Age")
	c.Values[0] = Number(99)
	cp.DropColumn("Sex")

	orig, _ := tb.Column("Age")
	f, _ := orig.Values[0].Float()
	assert.Equal(t, 22.0, f)
	assert.True(t, tb.Has("Sex"))
	assert.Equal(t, []string{"Age", "Survived"}, cp.Names())
}

func TestDropRows(t *testing.T) {
	tb := sample(t)
	removed := tb.DropRows(map[int]struct{}{1: {}, 4: {}, 17: {}})
	assert.Equal(t, 2, removed)
	assert.Equal(t, 3, tb.Rows())
	sex, _ := tb.Column("Sex")
	assert.Equal(t, "male", sex.Values[0].String())
	assert.Equal(t, "female", sex.Values[1].String())
	assert.Equal(t, "female", sex.Values[2].String())
}

func TestAppendAndDropColumnKeepIndex(t *testing.T) {
	tb := sample(t)
	require.NoError(t, tb.AppendColumn(Bools("Sex_male", true, false, false, false, true)))
	require.True(t, tb.DropColumn("Sex"))
	assert.False(t, tb.DropColumn("Sex"))
	assert.Equal(t, []string{"Age", "Survived", "Sex_male"}, tb.Names())
	c, ok := tb.Column("Sex_male")
	require.True(t, ok)
	assert.Equal(t, TypeBool, c.Type)
	require.Error(t, tb.AppendColumn(Numbers("short", 1)))
}

func TestHead(t *testing.T) {
	tb := sample(t)
	h := tb.Head(2)
	assert.Equal(t, 2, h.Rows())
	assert.Equal(t, 5, tb.Rows())
	assert.Equal(t, 5, tb.Head(50).Rows())
	assert.Equal(t, "female", h.Row(1)[1].String())
}

func TestRetype(t *testing.T) {
	c := Texts("Cabin", "C85", "", "E46")
	c.Values[1] = Number(0)
	c.Retype()
	assert.Equal(t, TypeText, c.Type)

	n := &Column{Name: "x", Type: TypeText, Values: []Value{Number(1), Null()}}
	n.Retype()
	assert.Equal(t, TypeNumber, n.Type)

	empty := &Column{Name: "e", Type: TypeText, Values: []Value{Null()}}
	empty.Retype()
	assert.Equal(t, TypeText, empty.Type)
}

func TestCompareAndKey(t *testing.T) {
	assert.Equal(t, -1, Compare(Null(), Number(0)))
	assert.Equal(t, -1, Compare(Number(2), Number(10)))
	assert.Equal(t, -1, Compare(Bool(false), Bool(true)))
	assert.Equal(t, 1, Compare(Text("b"), Text("a")))
	assert.NotEqual(t, Number(1).Key(), Text("1").Key())
	assert.Equal(t, "1", Number(1).String())
	assert.Equal(t, "0.5", Number(0.5).String())
}
