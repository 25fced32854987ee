package monitor

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/calvinmclean/autoshift/controller"
	"github.com/calvinmclean/autoshift/gears"
	"github.com/calvinmclean/autoshift/ridelog"
	"github.com/calvinmclean/autoshift/twchart"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var rideStart = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

type uploadCall struct {
	method string
	arg    string
}

type fakeUploader struct {
	mtx   sync.Mutex
	calls []uploadCall
	err   error
}

func (u *fakeUploader) record(method, arg string) error {
	u.mtx.Lock()
	defer u.mtx.Unlock()
	u.calls = append(u.calls, uploadCall{method, arg})
	return u.err
}

func (u *fakeUploader) Calls() []uploadCall {
	u.mtx.Lock()
	defer u.mtx.Unlock()
	return append([]uploadCall{}, u.calls...)
}

func (u *fakeUploader) CreateSession(_ context.Context, name string, _ twchart.Probes, _ time.Time) (string, error) {
	return "session", u.record("CreateSession", name)
}

func (u *fakeUploader) SetStartTime(context.Context, time.Time) error {
	return u.record("SetStartTime", "")
}

func (u *fakeUploader) AddEvent(_ context.Context, note string, _ time.Time) error {
	return u.record("AddEvent", note)
}

func (u *fakeUploader) AddStage(_ context.Context, name string, _ time.Time) error {
	return u.record("AddStage", name)
}

func (u *fakeUploader) Done(context.Context, time.Time) error {
	return u.record("Done", "")
}

// fakePort reads from a fixed device output and records writes
type fakePort struct {
	io.Reader
	written bytes.Buffer
	closed  bool
}

func (p *fakePort) Write(b []byte) (int, error) {
	return p.written.Write(b)
}

func (p *fakePort) Close() error {
	p.closed = true
	return nil
}

func fixedClock() func() time.Time {
	return func() time.Time { return rideStart }
}

func TestNewUploadsSession(t *testing.T) {
	u := &fakeUploader{}
	m, err := New(context.Background(), Config{SessionName: "Morning Ride"}, nil, nil, WithUploader(u), WithClock(fixedClock()))
	require.NoError(t, err)

	assert.Equal(t, []uploadCall{
		{"CreateSession", "Morning Ride"},
		{"SetStartTime", ""},
		{"AddStage", "Ride"},
	}, u.Calls())

	require.NoError(t, m.Close())
	assert.Equal(t, uploadCall{"Done", ""}, u.Calls()[3])
}

func TestNewDefaultSessionName(t *testing.T) {
	u := &fakeUploader{}
	_, err := New(context.Background(), Config{}, nil, nil, WithUploader(u), WithClock(fixedClock()))
	require.NoError(t, err)

	assert.Equal(t, "Ride 2025-06-01 08:00:00", u.Calls()[0].arg)
}

func TestNewUploadError(t *testing.T) {
	u := &fakeUploader{err: errors.New("offline")}
	_, err := New(context.Background(), Config{}, nil, nil, WithUploader(u))
	assert.ErrorContains(t, err, "error creating TWChart session: offline")
}

func TestNewInvalidProbes(t *testing.T) {
	_, err := New(context.Background(), Config{ProbesInput: "nope"}, nil, nil)
	assert.Error(t, err)
}

func TestHandleCommand(t *testing.T) {
	tests := []struct {
		cmd     string
		written string
		err     string
	}{
		{"R", "R\n", ""},
		{" reset ", "R\n", ""},
		{"", "", ""},
		{"up", "", `unknown command: "up"`},
	}

	for _, tt := range tests {
		t.Run(tt.cmd, func(t *testing.T) {
			port := &fakePort{Reader: strings.NewReader("")}
			m, err := New(context.Background(), Config{}, port, nil)
			require.NoError(t, err)

			err = m.HandleCommand(tt.cmd)
			if tt.err != "" {
				assert.EqualError(t, err, tt.err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.written, port.written.String())
		})
	}
}

func TestSendResetWithoutDevice(t *testing.T) {
	m, err := New(context.Background(), Config{}, nil, nil)
	require.NoError(t, err)
	assert.NoError(t, m.SendReset())
}

const deviceOutput = `[1000] starting autoshift
1,5,20.00,72.00,0.00,

1,5,14.00,50.40,0.00,shift_down:1/5>1/4
1,4,14.00,56.00,0.00,warning:unsupported wheel size
1,1,0.00,0.00,0.00,reset|error:error estimating cadence
1,x,bad
`

func TestTail(t *testing.T) {
	u := &fakeUploader{}
	dbPath := filepath.Join(t.TempDir(), "rides.db")

	m, err := New(context.Background(), Config{SerialPort: "/dev/ttyACM0", DBPath: dbPath}, nil, nil, WithUploader(u), WithClock(fixedClock()))
	require.NoError(t, err)

	var out bytes.Buffer
	err = m.Tail(context.Background(), strings.NewReader(deviceOutput), &out)
	require.NoError(t, err)

	assert.Equal(t, strings.Replace(deviceOutput, "\n\n", "\n", 1), out.String())
	assert.Equal(t, gears.Position{Front: 1, Rear: 1}, m.Last().Position)

	assert.Equal(t, []uploadCall{
		{"CreateSession", "Ride 2025-06-01 08:00:00"},
		{"SetStartTime", ""},
		{"AddStage", "Ride"},
		{"AddEvent", "shift_down 1/5>1/4"},
		{"AddStage", "Reset"},
	}, u.Calls())

	sessionID := m.session.ID
	require.NoError(t, m.Close())

	db, err := ridelog.Open(dbPath)
	require.NoError(t, err)
	defer db.Close()

	ticks, err := db.Ticks(context.Background(), sessionID)
	require.NoError(t, err)
	require.Len(t, ticks, 4)
	assert.Equal(t, 1, ticks[0].Seq)
	assert.InDelta(t, 50.4, ticks[1].ExpectedCadence, 0.001)

	counts, err := db.EventCounts(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[controller.EventShiftDown])
	assert.Equal(t, 1, counts[controller.EventReset])
	assert.Equal(t, 1, counts[controller.EventWarning])

	session, err := db.GetSession(context.Background(), sessionID)
	require.NoError(t, err)
	assert.NotNil(t, session.EndedAt)
}

func TestTailUploadErrorsDoNotStop(t *testing.T) {
	m, err := New(context.Background(), Config{}, nil, nil, WithClock(fixedClock()))
	require.NoError(t, err)

	u := &fakeUploader{err: errors.New("offline")}
	m.uploader = u

	err = m.Tail(context.Background(), strings.NewReader(deviceOutput), io.Discard)
	require.NoError(t, err)
	assert.Len(t, u.Calls(), 2)
}

func TestRunForwardsCommands(t *testing.T) {
	port := &fakePort{Reader: strings.NewReader(deviceOutput)}
	m, err := New(context.Background(), Config{}, port, nil)
	require.NoError(t, err)

	var out bytes.Buffer
	err = m.Run(context.Background(), strings.NewReader(""), &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "starting autoshift")

	require.NoError(t, m.Close())
	assert.True(t, port.closed)
}

func TestRunWithoutDevice(t *testing.T) {
	m, err := New(context.Background(), Config{}, nil, nil)
	require.NoError(t, err)

	err = m.Run(context.Background(), strings.NewReader("R\nbogus\n"), io.Discard)
	assert.NoError(t, err)
}

func TestRunCancelled(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()

	port := &fakePort{Reader: r}
	m, err := New(context.Background(), Config{}, port, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = m.Run(ctx, r, io.Discard)
	assert.ErrorIs(t, err, context.Canceled)
}
