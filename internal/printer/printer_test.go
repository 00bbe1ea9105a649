package printer

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrinterSplitsResultsAndStatus(t *testing.T) {
	var out, errOut bytes.Buffer
	p := New(&out, &errOut)

	p.Printf("review %d", 1)
	p.Successf("saved")
	p.Warnf("careful")
	p.Errorf("broken")

	assert.Equal(t, "review 1\n", out.String())
	assert.Contains(t, errOut.String(), "saved")
	assert.Contains(t, errOut.String(), "careful")
	assert.Contains(t, errOut.String(), "broken")
}

func TestCtx(t *testing.T) {
	var out bytes.Buffer
	p := New(&out, &out)

	assert.Same(t, p, Ctx(NewContext(context.Background(), p)))
	assert.NotNil(t, Ctx(context.Background()))
}

func TestDivider(t *testing.T) {
	var out bytes.Buffer
	New(&out, &out).Divider(3)
	assert.Contains(t, out.String(), "───")
}
