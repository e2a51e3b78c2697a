package runtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/qlab/internal/circuits"
	"github.com/san-kum/qlab/internal/quantum"
)

const testToken = "secret"

type fakeRuntime struct {
	polls  atomic.Int32
	closed atomic.Bool

	mu        sync.Mutex
	lastJob   map[string]any
	jobStatus string
}

func (f *fakeRuntime) job() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastJob
}

func (f *fakeRuntime) setStatus(s string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobStatus = s
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (f *fakeRuntime) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /backends", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, map[string]any{"devices": []string{"ibm_test", "ibm_other"}})
	})
	mux.HandleFunc("GET /backends/{name}/configuration", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("name") != "ibm_test" {
			writeJSON(w, 404, map[string]any{"errors": []map[string]any{{"code": 1216, "message": "backend not found"}}})
			return
		}
		writeJSON(w, 200, map[string]any{
			"backend_name": "ibm_test",
			"n_qubits":     3,
			"basis_gates":  []string{"ecr", "id", "rz", "sx", "x"},
			"coupling_map": [][]int{{0, 1}, {2, 1}},
		})
	})
	mux.HandleFunc("GET /backends/{name}/properties", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, map[string]any{
			"backend_name": "ibm_test",
			"qubits": [][]map[string]any{
				{{"name": "T1", "value": 120.5, "unit": "us"}, {"name": "readout_error", "value": 0.02}},
				{{"name": "readout_error", "value": 0.04}},
			},
			"gates": []map[string]any{
				{"gate": "sx", "qubits": []int{0}, "parameters": []map[string]any{{"name": "gate_error", "value": 0.001}}},
				{"gate": "sx", "qubits": []int{1}, "parameters": []map[string]any{{"name": "gate_error", "value": 0.003}}},
				{"gate": "ecr", "qubits": []int{0, 1}, "parameters": []map[string]any{{"name": "gate_error", "value": 0.01}}},
			},
		})
	})
	mux.HandleFunc("POST /sessions", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, map[string]any{"id": "sess-1", "mode": "dedicated"})
	})
	mux.HandleFunc("DELETE /sessions/{id}/close", func(w http.ResponseWriter, r *http.Request) {
		f.closed.Store(true)
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /jobs", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.lastJob = body
		f.mu.Unlock()
		writeJSON(w, 200, map[string]any{"id": "job-1", "backend": body["backend"]})
	})
	mux.HandleFunc("GET /jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "job-1" {
			writeJSON(w, 404, map[string]any{"errors": []map[string]any{{"code": 1291, "message": "job not found"}}})
			return
		}
		status := "Queued"
		if f.polls.Add(1) >= 3 {
			f.mu.Lock()
			status = f.jobStatus
			f.mu.Unlock()
		}
		writeJSON(w, 200, map[string]any{
			"id":     "job-1",
			"status": status,
			"state":  map[string]any{"status": status, "reason": "calibration drift"},
		})
	})
	mux.HandleFunc("GET /jobs/{id}/results", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, map[string]any{
			"results": []map[string]any{
				{"data": map[string]any{"c": map[string]any{
					"samples":  []string{"0x0", "0x3", "0x3", "0x1"},
					"num_bits": 2,
				}}},
			},
		})
	})

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+testToken {
			writeJSON(w, 401, map[string]any{"errors": []map[string]any{{"code": 1010, "message": "invalid token"}}})
			return
		}
		mux.ServeHTTP(w, r)
	})
}

func newTestService(t *testing.T, token string) (*Service, *fakeRuntime) {
	t.Helper()
	fake := &fakeRuntime{jobStatus: "Completed"}
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	svc, err := NewService(Options{Token: token, BaseURL: srv.URL, Instance: "hub/group/project"})
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	return svc, fake
}

func TestNewServiceRequiresToken(t *testing.T) {
	t.Setenv(TokenEnv, "")
	_, err := NewService(Options{})
	assert.ErrorIs(t, err, ErrNoToken)

	_, err = NewService(Options{Token: "x", Channel: "local"})
	assert.ErrorIs(t, err, ErrUnknownChannel)
}

func TestNewServiceReadsTokenFromEnv(t *testing.T) {
	t.Setenv(TokenEnv, "from-env")
	svc, err := NewService(Options{Channel: ChannelIBMCloud})
	require.NoError(t, err)
	defer svc.Close()
	assert.Equal(t, ChannelIBMCloud, svc.Channel())
}

func TestBackends(t *testing.T) {
	svc, _ := newTestService(t, testToken)
	ctx := context.Background()

	names, err := svc.Backends(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ibm_test", "ibm_other"}, names)

	cfg, err := svc.Backend(ctx, "ibm_test")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.NumQubits)
	assert.Equal(t, []string{"ecr", "id", "rz", "sx", "x"}, cfg.BasisGates)
	assert.Equal(t, [][2]int{{0, 1}, {2, 1}}, cfg.CouplingMap)

	_, err = svc.Backend(ctx, "ibm_missing")
	assert.ErrorIs(t, err, ErrBackendNotFound)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.Status)
	assert.Equal(t, 1216, apiErr.Code)
	assert.Equal(t, "backend not found", apiErr.Message)
}

func TestUnauthorized(t *testing.T) {
	svc, _ := newTestService(t, "wrong")
	_, err := svc.Backends(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestProperties(t *testing.T) {
	svc, _ := newTestService(t, testToken)
	props, err := svc.Properties(context.Background(), "ibm_test")
	require.NoError(t, err)

	t1, ok := props.QubitValue(0, "T1")
	assert.True(t, ok)
	assert.InDelta(t, 120.5, t1, 1e-12)

	ro, ok := props.QubitValue(1, "readout_error")
	assert.True(t, ok)
	assert.InDelta(t, 0.04, ro, 1e-12)

	_, ok = props.QubitValue(5, "T1")
	assert.False(t, ok)

	ge, ok := props.GateError("ecr", 0, 1)
	assert.True(t, ok)
	assert.InDelta(t, 0.01, ge, 1e-12)

	mean, ok := props.MeanGateError("sx")
	assert.True(t, ok)
	assert.InDelta(t, 0.002, mean, 1e-12)
}

func TestSamplerJobLifecycle(t *testing.T) {
	svc, fake := newTestService(t, testToken)
	ctx := context.Background()

	sess, err := svc.OpenSession(ctx, "ibm_test")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", sess.ID)

	id, err := svc.RunSampler(ctx, SamplerRequest{
		Session:  sess,
		Circuits: []*quantum.Circuit{circuits.Bell()},
		Shots:    4,
	})
	require.NoError(t, err)
	assert.Equal(t, "job-1", id)

	body := fake.job()
	assert.Equal(t, "sampler", body["program_id"])
	assert.Equal(t, "ibm_test", body["backend"])
	assert.Equal(t, "sess-1", body["session_id"])
	assert.Equal(t, "hub", body["hub"])
	params := body["params"].(map[string]any)
	pubs := params["pubs"].([]any)
	require.Len(t, pubs, 1)
	pub := pubs[0].([]any)
	assert.Contains(t, pub[0], "cx q[1],q[0];")
	assert.EqualValues(t, 4, pub[2])

	job, err := svc.Wait(ctx, id, 5*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, job.Status)
	assert.True(t, job.Status.Terminal())

	counts, err := svc.SamplerResults(ctx, id)
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.Equal(t, quantum.Counts{"00": 1, "11": 2, "01": 1}, counts[0])

	require.NoError(t, sess.Close(ctx))
	assert.True(t, fake.closed.Load())
}

func TestWaitReportsFailure(t *testing.T) {
	svc, fake := newTestService(t, testToken)
	fake.setStatus("Failed")
	_, err := svc.Wait(context.Background(), "job-1", time.Millisecond)
	assert.ErrorIs(t, err, ErrJobFailed)
	assert.Contains(t, err.Error(), "calibration drift")
}

func TestWaitHonoursContext(t *testing.T) {
	svc, fake := newTestService(t, testToken)
	fake.setStatus("Running")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := svc.Wait(ctx, "job-1", 5*time.Millisecond)
	assert.Error(t, err)
}

func TestJobNotFound(t *testing.T) {
	svc, _ := newTestService(t, testToken)
	_, err := svc.Job(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestEstimatorRequestBody(t *testing.T) {
	svc, fake := newTestService(t, testToken)
	ansatz := quantum.NewCircuit(2, 0).H(1).CX(1, 0)
	obs := quantum.MustFromList(quantum.PauliTerm{Label: "ZZ", Coeff: 1}, quantum.PauliTerm{Label: "XX", Coeff: 0.5})

	_, err := svc.RunEstimator(context.Background(), EstimatorRequest{
		Backend:     "ibm_test",
		Circuits:    []*quantum.Circuit{ansatz},
		Observables: [][]quantum.SparsePauliOp{{obs}},
		Precision:   0.01,
	})
	require.NoError(t, err)
	body := fake.job()
	assert.Equal(t, "estimator", body["program_id"])
	params := body["params"].(map[string]any)
	assert.Equal(t, map[string]any{"default_precision": 0.01}, params["options"])
	pub := params["pubs"].([]any)[0].([]any)
	observables := pub[1].([]any)
	assert.Equal(t, map[string]any{"ZZ": 1.0, "XX": 0.5}, observables[0])
}

func TestDecodeSamples(t *testing.T) {
	counts, err := DecodeSamples([]BitArray{
		{Samples: []string{"0x1", "0x0"}, NumBits: 1},
		{Samples: []string{"0x2", "0x2"}, NumBits: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, quantum.Counts{"0101": 1, "0100": 1}, counts)

	_, err = DecodeSamples([]BitArray{{Samples: []string{"0x8"}, NumBits: 2}})
	assert.Error(t, err)
}

func TestFloats(t *testing.T) {
	v, err := floats(json.RawMessage(`1.5`))
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5}, v)
	v, err = floats(json.RawMessage(`[1, 2]`))
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, v)
}
