package meter

import (
	"encoding/hex"
	"net"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/jonaz/gombus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// first response telegram of a GARO GNM3D, total energy 78236*100 Wh
const garoFrame = `68 65 65 68 08 01 72 14 21 07 90 36 1c c7 02 4d 00 00 00 04 05 9c 31 01 00 04 fb 82 75 63 91 00 00 04 2a 36 08 00 00 04 fb 97 72 ca fe ff ff 04 fb b7 72 6d 08 00 00 02 fd ba 73 dc 03 84 80 80 40 fd 48 c4 0f 00 00 04 fd 48 1a 09 00 00 84 40 fd 59 d2 04 00 00 84 80 40 fd 59 78 00 00 00 84 c0 40 fd 59 00 00 00 00 1f 95 16`

// same header without data records
const emptyFrame = `68 0f 0f 68 08 01 72 14 21 07 90 36 1c c7 02 4d 00 00 00 af 16`

func decodeHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(strings.ReplaceAll(s, " ", ""))
	require.NoError(t, err)
	return b
}

// fakeDevice answers one SND_NKE and one REQ_UD2 on a pipe. With no response it
// hangs up after the SND_NKE instead.
func fakeDevice(t *testing.T, wg *sync.WaitGroup, response []byte) gombus.Conn {
	client, server := net.Pipe()
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer server.Close()
		buf := make([]byte, 5)
		if _, err := server.Read(buf); err != nil {
			return
		}
		if response == nil {
			return
		}
		if _, err := server.Write([]byte{gombus.SingleCharacterFrame}); err != nil {
			return
		}
		if _, err := server.Read(buf); err != nil {
			return
		}
		_, err := server.Write(response)
		assert.NoError(t, err)
	}()
	return client
}

func TestRead(t *testing.T) {
	var tests = []struct {
		name     string
		model    string
		id       string
		response string
		totalWh  float64
		dialed   int
		err      string
	}{
		{
			name:     "garo total energy",
			model:    ModelGaroGNM3D,
			id:       "1",
			response: garoFrame,
			totalWh:  7823600,
			dialed:   1,
		},
		{
			name:     "no data records",
			model:    ModelGaroGNM3D,
			id:       "1",
			response: emptyFrame,
			dialed:   1,
			err:      "meter 1 returned no data records",
		},
		{
			name:  "unsupported model",
			model: "kamstrup-382",
			id:    "1",
			err:   "unsupported meter model kamstrup-382",
		},
		{
			name:  "invalid primary id",
			model: ModelGaroGNM3D,
			id:    "one",
			err:   `invalid meter primary id "one"`,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			wg := &sync.WaitGroup{}
			dialed := 0
			m := New("/dev/ttyAMA0", tt.model, tt.id)
			m.dial = func(name string) (gombus.Conn, error) {
				assert.Equal(t, "/dev/ttyAMA0", name)
				dialed++
				return fakeDevice(t, wg, decodeHex(t, tt.response)), nil
			}

			r, err := m.Read()
			assert.NoError(t, m.Close())
			wg.Wait()
			assert.Equal(t, tt.dialed, dialed)
			if tt.err != "" {
				assert.ErrorContains(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "1", r.ID)
			assert.Equal(t, tt.model, r.Model)
			assert.InDelta(t, tt.totalWh, r.TotalWh, 0.001)
		})
	}
}

func TestReadDialsAgainAfterError(t *testing.T) {
	wg := &sync.WaitGroup{}
	responses := [][]byte{nil, decodeHex(t, garoFrame)}
	dialed := 0
	m := New("/dev/ttyAMA0", ModelGaroGNM3D, "1")
	m.dial = func(string) (gombus.Conn, error) {
		r := responses[dialed]
		dialed++
		return fakeDevice(t, wg, r), nil
	}

	_, err := m.Read()
	assert.Error(t, err)
	assert.Nil(t, m.conn)

	r, err := m.Read()
	require.NoError(t, err)
	assert.InDelta(t, 7823600.0, r.TotalWh, 0.001)
	assert.Equal(t, 2, dialed)

	assert.NoError(t, m.Close())
	wg.Wait()
}

func TestReadMissingDevice(t *testing.T) {
	m := New(filepath.Join(t.TempDir(), "ttyAMA0"), ModelGaroGNM3D, "1")
	_, err := m.Read()
	assert.Error(t, err)
	assert.NoError(t, m.Close())
}
