package plusserver_test

import (
	"encoding/base64"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	plusserver "github.com/W-Z-FinTech-GmbH/sms-plusserver"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(srv *httptest.Server) plusserver.Config {
	return plusserver.Config{
		PutURL:   srv.URL + "/put.php",
		StateURL: srv.URL + "/sms-state.php",
		Username: "user",
		Password: "secret",
		Logger:   discardLogger(),
	}
}

func TestPutSMSSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/put.php", r.URL.Path)

		auth := r.Header.Get("Authorization")
		expected := "Basic " + base64.StdEncoding.EncodeToString([]byte("user:secret"))
		assert.Equal(t, expected, auth)

		assert.Equal(t, "+4917512345678", r.FormValue("dest"))
		assert.Equal(t, "Hello!", r.FormValue("data"))
		assert.Equal(t, "0", r.FormValue("debug"))
		assert.Equal(t, "1", r.FormValue("registered_delivery"))
		assert.Equal(t, "myproject", r.FormValue("project"))
		assert.NotContains(t, r.PostForm, "orig")
		assert.NotContains(t, r.PostForm, "enc")
		assert.NotContains(t, r.PostForm, "maxparts")

		w.Write([]byte("REQUEST OK\nhandle = 017512345678.1\n"))
	}))
	defer srv.Close()

	cfg := testConfig(srv)
	cfg.Project = "myproject"
	svc := plusserver.NewService(cfg)

	resp, err := svc.PutSMS(t.Context(), plusserver.PutRequest{
		Destination:        "+4917512345678",
		Text:               "Hello!",
		RegisteredDelivery: true,
	}, nil)
	require.NoError(t, err)
	assert.True(t, resp.IsOK())
	assert.Equal(t, "017512345678.1", resp.HandleID())
}

func TestPutSMSOptionalFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "INFO", r.FormValue("orig"))
		assert.Equal(t, "utf-8", r.FormValue("enc"))
		assert.Equal(t, "3", r.FormValue("maxparts"))
		assert.Equal(t, "1", r.FormValue("debug"))
		assert.Equal(t, "0", r.FormValue("registered_delivery"))
		assert.Equal(t, "override", r.FormValue("project"))
		w.Write([]byte("REQUEST OK\n"))
	}))
	defer srv.Close()

	svc := plusserver.NewService(testConfig(srv))
	resp, err := svc.PutSMS(t.Context(), plusserver.PutRequest{
		Destination: "+4917512345678",
		Text:        "Hello!",
		Orig:        "INFO",
		Debug:       true,
		Project:     "override",
		Encoding:    "utf-8",
		MaxParts:    3,
	}, nil)
	require.NoError(t, err)
	assert.True(t, resp.IsOK())
}

func TestPutSMSServiceDefaults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "NOTIFY", r.FormValue("orig"))
		assert.Equal(t, "gsm", r.FormValue("enc"))
		assert.Equal(t, "2", r.FormValue("maxparts"))
		assert.Equal(t, "base", r.FormValue("project"))
		w.Write([]byte("REQUEST OK\n"))
	}))
	defer srv.Close()

	cfg := testConfig(srv)
	cfg.Orig = "NOTIFY"
	cfg.Encoding = "gsm"
	cfg.MaxParts = 2
	cfg.Project = "base"
	svc := plusserver.NewService(cfg)

	_, err := svc.PutSMS(t.Context(), plusserver.PutRequest{
		Destination: "+4917512345678",
		Text:        "Hello!",
	}, nil)
	require.NoError(t, err)
}

func TestPutSMSMissingCredentials(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	cfg := testConfig(srv)
	cfg.Password = ""
	svc := plusserver.NewService(cfg)

	put := plusserver.PutRequest{Destination: "+4917512345678", Text: "hi"}

	_, err := svc.PutSMS(t.Context(), put, nil)
	var confErr *plusserver.ConfigurationError
	require.ErrorAs(t, err, &confErr)

	// Fail-silently never suppresses configuration errors.
	_, err = svc.PutSMS(t.Context(), put, &plusserver.CallOptions{FailSilently: true})
	require.ErrorAs(t, err, &confErr)

	assert.Equal(t, int32(0), calls.Load())
}

func TestPutSMSPlatformError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ERROR\nerror = Authorization failed\n"))
	}))
	defer srv.Close()

	svc := plusserver.NewService(testConfig(srv))
	_, err := svc.PutSMS(t.Context(), plusserver.PutRequest{Destination: "+4917512345678", Text: "hi"}, nil)

	var reqErr *plusserver.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, 0, reqErr.StatusCode)
	assert.Contains(t, err.Error(), "Authorization failed")
}

func TestPutSMSHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	svc := plusserver.NewService(testConfig(srv))
	_, err := svc.PutSMS(t.Context(), plusserver.PutRequest{Destination: "+4917512345678", Text: "hi"}, nil)

	var reqErr *plusserver.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusInternalServerError, reqErr.StatusCode)
	assert.False(t, plusserver.IsTimeout(err))
}

func TestPutSMSNetworkError(t *testing.T) {
	// Nothing listens on port 1.
	svc := plusserver.NewService(plusserver.Config{
		PutURL:   "http://127.0.0.1:1/put.php",
		StateURL: "http://127.0.0.1:1/sms-state.php",
		Username: "user",
		Password: "secret",
		Logger:   discardLogger(),
	})
	_, err := svc.PutSMS(t.Context(), plusserver.PutRequest{Destination: "+4917512345678", Text: "hi"}, nil)

	var commErr *plusserver.CommunicationError
	require.ErrorAs(t, err, &commErr)
	assert.False(t, commErr.Timeout())
	assert.False(t, plusserver.IsTimeout(err))
}

func TestPutSMSTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte("REQUEST OK\n"))
	}))
	defer srv.Close()

	svc := plusserver.NewService(testConfig(srv))
	_, err := svc.PutSMS(t.Context(), plusserver.PutRequest{Destination: "+4917512345678", Text: "hi"},
		&plusserver.CallOptions{Timeout: 20 * time.Millisecond})

	var commErr *plusserver.CommunicationError
	require.ErrorAs(t, err, &commErr)
	assert.True(t, commErr.Timeout())
	assert.True(t, plusserver.IsTimeout(err))
}

func TestTimeoutResolution(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(60 * time.Millisecond)
		w.Write([]byte("REQUEST OK\n"))
	}))
	defer srv.Close()

	cfg := testConfig(srv)
	cfg.Timeout = 20 * time.Millisecond
	svc := plusserver.NewService(cfg)

	put := plusserver.PutRequest{Destination: "+4917512345678", Text: "hi"}

	// Service default applies when the call does not set one.
	_, err := svc.PutSMS(t.Context(), put, nil)
	assert.True(t, plusserver.IsTimeout(err))

	// A per-call timeout overrides the service default.
	_, err = svc.PutSMS(t.Context(), put, &plusserver.CallOptions{Timeout: 500 * time.Millisecond})
	require.NoError(t, err)
}

func TestPutSMSFailSilently(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ERROR\nerror = Invalid destination\n"))
	}))
	defer srv.Close()

	svc := plusserver.NewService(testConfig(srv))
	resp, err := svc.PutSMS(t.Context(), plusserver.PutRequest{Destination: "bogus", Text: "hi"},
		&plusserver.CallOptions{FailSilently: true})
	require.NoError(t, err)
	assert.Nil(t, resp)
}

func TestPutSMSFailSilentlyNetworkError(t *testing.T) {
	svc := plusserver.NewService(plusserver.Config{
		PutURL:   "http://127.0.0.1:1/put.php",
		StateURL: "http://127.0.0.1:1/sms-state.php",
		Username: "user",
		Password: "secret",
		Logger:   discardLogger(),
	})
	resp, err := svc.PutSMS(t.Context(), plusserver.PutRequest{Destination: "+4917512345678", Text: "hi"},
		&plusserver.CallOptions{FailSilently: true})
	require.NoError(t, err)
	assert.Nil(t, resp)
}

func TestCheckSMSState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/sms-state.php", r.URL.Path)
		assert.Equal(t, "017512345678.1", r.FormValue("handle"))
		w.Write([]byte("REQUEST OK\nstate = arrived\n"))
	}))
	defer srv.Close()

	svc := plusserver.NewService(testConfig(srv))
	resp, err := svc.CheckSMSState(t.Context(), "017512345678.1", nil)
	require.NoError(t, err)
	assert.Equal(t, plusserver.StateArrived, resp.State())
}

func TestCheckSMSStateEmptyHandle(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	svc := plusserver.NewService(testConfig(srv))

	_, err := svc.CheckSMSState(t.Context(), "", nil)
	var valErr *plusserver.ValidationError
	require.ErrorAs(t, err, &valErr)

	// Fail-silently never suppresses validation errors.
	_, err = svc.CheckSMSState(t.Context(), "", &plusserver.CallOptions{FailSilently: true})
	require.ErrorAs(t, err, &valErr)

	assert.Equal(t, int32(0), calls.Load())
}

func TestConfigure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "user2", user)
		assert.Equal(t, "secret2", pass)
		assert.Equal(t, "newproject", r.FormValue("project"))
		w.Write([]byte("REQUEST OK\n"))
	}))
	defer srv.Close()

	cfg := testConfig(srv)
	cfg.Project = "oldproject"
	svc := plusserver.NewService(cfg)

	username, password, project := "user2", "secret2", "newproject"
	svc.Configure(plusserver.ConfigUpdate{
		Username: &username,
		Password: &password,
		Project:  &project,
	})

	_, err := svc.PutSMS(t.Context(), plusserver.PutRequest{Destination: "+4917512345678", Text: "hi"}, nil)
	require.NoError(t, err)
}

func TestConfigureLeavesOtherFieldsAlone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "base", r.FormValue("project"))
		assert.Equal(t, "NEWORIG", r.FormValue("orig"))
		w.Write([]byte("REQUEST OK\n"))
	}))
	defer srv.Close()

	cfg := testConfig(srv)
	cfg.Project = "base"
	svc := plusserver.NewService(cfg)

	orig := "NEWORIG"
	svc.Configure(plusserver.ConfigUpdate{Orig: &orig})

	_, err := svc.PutSMS(t.Context(), plusserver.PutRequest{Destination: "+4917512345678", Text: "hi"}, nil)
	require.NoError(t, err)
}
