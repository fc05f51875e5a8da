package interact

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devicelab-dev/shopcheck/pkg/core"
	"github.com/devicelab-dev/shopcheck/pkg/driver/mock"
	"github.com/devicelab-dev/shopcheck/pkg/flow"
)

func newTestExecutor(d core.Driver) *ActionExecutor {
	a := NewActionExecutor(newTestResolver(d))
	a.ResolveTimeout = 10 * time.Millisecond
	a.StabilityInterval = time.Millisecond
	return a
}

func TestType_ClearsInputsAndDispatches(t *testing.T) {
	field := mock.Visible("email", "", "#email")
	field.Value = "stale@example.com"
	a := newTestExecutor(newTestDriver(t, field))

	err := a.Type(context.Background(), flow.Candidates{flow.CSS("#email")}, "alex@example.com", ActionOptions{})
	require.NoError(t, err)

	assert.Equal(t, "alex@example.com", field.Value)
	assert.Equal(t, []string{"click", "input", "change", "blur"}, field.Events)
}

func TestType_Cadence(t *testing.T) {
	field := mock.Visible("name", "", "#name")
	a := newTestExecutor(newTestDriver(t, field))

	start := time.Now()
	err := a.Type(context.Background(), flow.Candidates{flow.CSS("#name")}, "Sam", ActionOptions{Cadence: 2 * time.Millisecond})
	require.NoError(t, err)

	assert.Equal(t, "Sam", field.Value)
	assert.GreaterOrEqual(t, time.Since(start), 6*time.Millisecond)
}

func TestClick_WaitsForStableBox(t *testing.T) {
	btn := mock.Visible("buy", "Buy", "#buy")
	btn.Moving = 2
	a := newTestExecutor(newTestDriver(t, btn))

	_, err := a.Click(context.Background(), flow.Candidates{flow.CSS("#buy")}, ActionOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, btn.Clicks)
}

func TestClick_NeverSettles(t *testing.T) {
	btn := mock.Visible("carousel", "Next", "#next")
	btn.Moving = -1
	a := newTestExecutor(newTestDriver(t, btn))

	_, err := a.Click(context.Background(), flow.Candidates{flow.CSS("#next")}, ActionOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrActionFailed))
	assert.True(t, errors.Is(err, errNotSettled))
	assert.Equal(t, 0, btn.Clicks, "unsettled element must not be clicked")
}

func TestClick_Failures(t *testing.T) {
	broken := mock.Visible("b", "Buy", "#buy")
	broken.ClickErr = errors.New("node is detached")

	tests := []struct {
		name         string
		els          []*mock.Element
		wantCategory core.ErrorCategory
	}{
		{"not found", nil, core.ErrCategoryElement},
		{"click error", []*mock.Element{broken}, core.ErrCategoryAction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestExecutor(newTestDriver(t, tt.els...))
			_, err := a.Click(context.Background(), flow.Candidates{flow.CSS("#buy")}, ActionOptions{})

			if !errors.Is(err, core.ErrActionFailed) {
				t.Fatalf("Click() error = %v, want ErrActionFailed", err)
			}
			if got := core.Classify(err); got != tt.wantCategory {
				t.Errorf("Classify() = %v, want %v", got, tt.wantCategory)
			}
			var ee *core.ExecutionError
			if !errors.As(err, &ee) || ee.Details["selectors"] == nil {
				t.Errorf("ActionFailed should carry selectors: %v", err)
			}
		})
	}
}

func TestSelect(t *testing.T) {
	sel := mock.Visible("size", "", "select[name*=size]")
	sel.Options = []string{"Choose", "S", "M"}
	a := newTestExecutor(newTestDriver(t, sel))
	cands := flow.Candidates{flow.CSS("select[name*=size]")}

	opts, err := a.Options(context.Background(), cands, ActionOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Choose", "S", "M"}, opts)

	require.NoError(t, a.Select(context.Background(), cands, "M", ActionOptions{}))
	assert.Equal(t, "M", sel.Selected)

	err = a.Select(context.Background(), cands, "XXL", ActionOptions{})
	assert.True(t, errors.Is(err, core.ErrActionFailed))
}

func TestReadText(t *testing.T) {
	a := newTestExecutor(newTestDriver(t, mock.Visible("order", "  Order #123456 ", ".order-number")))
	text, err := a.ReadText(context.Background(), flow.Candidates{flow.CSS(".order-number")}, ActionOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Order #123456", text)
}

func TestPressEnter(t *testing.T) {
	search := mock.Visible("q", "", "input[name=q]")
	submitted := false
	search.OnEnter = func(*mock.Driver) error {
		submitted = true
		return nil
	}
	a := newTestExecutor(newTestDriver(t, search))

	require.NoError(t, a.PressEnter(context.Background(), flow.Candidates{flow.CSS("input[name=q]")}, ActionOptions{}))
	assert.True(t, submitted)
}

func TestAction_TimeoutIsDistinguishable(t *testing.T) {
	a := newTestExecutor(newTestDriver(t))
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Millisecond)
	defer cancel()

	_, err := a.Click(ctx, flow.Candidates{flow.CSS("#never")}, ActionOptions{Timeout: time.Second})
	require.Error(t, err)
	assert.Equal(t, core.ErrCategoryTimeout, core.Classify(err))
	assert.Equal(t, "timeout", core.Code(err))
	assert.False(t, strings.Contains(core.Code(err), "element_not_found"))
}
