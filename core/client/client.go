/*
Package client provides easy and fast access to the switchboard REST api.

The client can either talk to a real server via HTTP, or directly to the mux
router without marshalling HTTP. The router mode is the tool of choice for
unit tests and for services that embed the api in the same process.
*/
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// Client provides easy access to the switchboard REST API.
type Client struct {
	router     *mux.Router
	httpClient *http.Client
	url        string
	ctx        context.Context
}

// NewWithRouter creates a client that makes pseudo-REST requests directly
// through the mux router.
func NewWithRouter(router *mux.Router) Client {
	return Client{router: router}
}

// NewWithURL creates a client that makes REST requests to a running server.
func NewWithURL(url string) Client {
	return Client{
		url:        url,
		httpClient: &http.Client{Timeout: 20 * time.Second},
	}
}

// WithContext returns a new client with a specific request context.
func (c Client) WithContext(ctx context.Context) Client {
	c.ctx = ctx
	return c
}

func (c Client) context() context.Context {
	if c.ctx == nil {
		return context.Background()
	}
	return c.ctx
}

// Device is the read model of one relay-controller board as returned by the
// api, including the computed online state.
type Device struct {
	DeviceID   uuid.UUID `json:"device_id"`
	MAC        string    `json:"mac"`
	Name       string    `json:"name,omitempty"`
	IP         string    `json:"ip,omitempty"`
	Platform   string    `json:"platform,omitempty"`
	Status     string    `json:"status"`
	LastSeenAt time.Time `json:"last_seen_at"`
	Online     bool      `json:"online"`
	Switches   []struct {
		SwitchID   uuid.UUID `json:"switch_id"`
		Name       string    `json:"name"`
		GPIO       int       `json:"gpio"`
		ManualPin  *int      `json:"manual_pin,omitempty"`
		Type       string    `json:"type,omitempty"`
		State      bool      `json:"state"`
		ManualMode string    `json:"manual_mode,omitempty"`
	} `json:"switches"`
}

// Devices lists all device records. Returns the actual http status code.
func (c Client) Devices(result *[]Device) (int, error) {
	return c.RawGet("/devices", result)
}

// Device reads one device record. Returns the actual http status code.
func (c Client) Device(deviceID uuid.UUID, result *Device) (int, error) {
	return c.RawGet("/devices/"+deviceID.String(), result)
}

// PutDeviceConfig replaces a device's configuration. The body is validated
// server-side; the result carries the pin validation outcome. A rejected
// configuration comes back with http.StatusConflict.
func (c Client) PutDeviceConfig(deviceID uuid.UUID, config interface{}, result interface{}) (int, error) {
	return c.RawPut("/devices/"+deviceID.String()+"/config", config, result)
}

// SendCommand dispatches a single switch command. Expects
// http.StatusAccepted; an unreachable device comes back with
// http.StatusConflict.
func (c Client) SendCommand(deviceID, switchID uuid.UUID, state bool) (int, error) {
	body := struct {
		State bool `json:"state"`
	}{State: state}
	return c.RawPost("/devices/"+deviceID.String()+"/switches/"+switchID.String()+"/command",
		body, nil, http.StatusAccepted)
}

// SendBulkCommand dispatches a command to the matching switches of many
// devices and returns how many commands were actually sent.
func (c Client) SendBulkCommand(deviceIDs []uuid.UUID, switchType string, state bool) (int, int, error) {
	body := struct {
		State      bool        `json:"state"`
		DeviceIDs  []uuid.UUID `json:"device_ids"`
		SwitchType string      `json:"switch_type,omitempty"`
	}{State: state, DeviceIDs: deviceIDs, SwitchType: switchType}
	var result struct {
		Sent int `json:"sent"`
	}
	status, err := c.RawPost("/commands/bulk", body, &result, http.StatusOK)
	return result.Sent, status, err
}

// ClassifyPin asks the api for the safety classification of one pin. An empty
// platform selects the server's default platform.
func (c Client) ClassifyPin(pin int, platform string, allowProblematic bool, result interface{}) (int, error) {
	path := fmt.Sprintf("/pins/%d", pin)
	var params []string
	if platform != "" {
		params = append(params, "platform="+platform)
	}
	if allowProblematic {
		params = append(params, "allow_problematic=true")
	}
	if len(params) > 0 {
		path += "?" + strings.Join(params, "&")
	}
	return c.RawGet(path, result)
}

// ValidateDeviceConfig dry-runs a device configuration through the server's
// safety checks without persisting anything.
func (c Client) ValidateDeviceConfig(config interface{}, result interface{}) (int, error) {
	return c.RawPost("/devices/validate", config, result, http.StatusOK)
}

func (c Client) do(r *http.Request) (int, []byte, error) {
	if c.router != nil {
		rec := httptest.NewRecorder()
		c.router.ServeHTTP(rec, r)
		return rec.Code, rec.Body.Bytes(), nil
	}
	res, err := c.httpClient.Do(r)
	if err != nil {
		return http.StatusInternalServerError, nil, err
	}
	defer res.Body.Close()
	resBody, _ := io.ReadAll(res.Body)
	return res.StatusCode, resBody, nil
}

func decode(resBody []byte, result interface{}) error {
	if result == nil || len(resBody) == 0 {
		return nil
	}
	if raw, ok := result.(*[]byte); ok {
		*raw = resBody
		return nil
	}
	return json.Unmarshal(resBody, result)
}

// RawGet gets the resource from path. Expects http.StatusOK as response,
// otherwise it will flag an error. Returns the actual http status code.
//
// result can be map[string]interface{} or a raw *[]byte. result can be nil.
func (c Client) RawGet(path string, result interface{}) (int, error) {
	r, _ := http.NewRequestWithContext(c.context(), http.MethodGet, c.url+path, nil)
	status, resBody, err := c.do(r)
	if err != nil {
		return status, err
	}
	if status != http.StatusOK {
		return status, fmt.Errorf("handler returned wrong status code: got %v want %v. Error: %s",
			status, http.StatusOK, strings.TrimSpace(string(resBody)))
	}
	return status, decode(resBody, result)
}

// RawPost posts a resource to path and expects the given status as response,
// otherwise it will flag an error. Returns the actual http status code.
//
// body can also be a []byte, result can also be a raw *[]byte. result can be nil.
func (c Client) RawPost(path string, body interface{}, result interface{}, expect int) (int, error) {
	j, ok := body.([]byte)
	if !ok {
		var err error
		j, err = json.Marshal(body)
		if err != nil {
			return http.StatusBadRequest, fmt.Errorf("POST to %s: %w", path, err)
		}
	}
	r, _ := http.NewRequestWithContext(c.context(), http.MethodPost, c.url+path, bytes.NewBuffer(j))
	status, resBody, err := c.do(r)
	if err != nil {
		return status, err
	}
	if status != expect {
		return status, fmt.Errorf("handler returned wrong status code: got %v want %v. Error: %s",
			status, expect, strings.TrimSpace(string(resBody)))
	}
	return status, decode(resBody, result)
}

// RawPut puts a resource to path. Expects http.StatusOK, http.StatusCreated
// or http.StatusNoContent as valid responses, otherwise it will flag an
// error. Returns the actual http status code.
//
// In case of http.StatusConflict, the conflicting validation result has been
// returned as result.
//
// body can also be a []byte, result can also be a raw *[]byte. result can be nil.
func (c Client) RawPut(path string, body interface{}, result interface{}) (int, error) {
	j, ok := body.([]byte)
	if !ok {
		var err error
		j, err = json.Marshal(body)
		if err != nil {
			return http.StatusBadRequest, fmt.Errorf("PUT to %s: %w", path, err)
		}
	}
	r, _ := http.NewRequestWithContext(c.context(), http.MethodPut, c.url+path, bytes.NewBuffer(j))
	status, resBody, err := c.do(r)
	if err != nil {
		return status, err
	}
	if status != http.StatusOK && status != http.StatusCreated &&
		status != http.StatusNoContent && status != http.StatusConflict {
		return status, fmt.Errorf("put got status=%d body=%s", status, strings.TrimSpace(string(resBody)))
	}
	if err := decode(resBody, result); err != nil {
		return status, err
	}
	if status == http.StatusConflict {
		return status, fmt.Errorf("conflict while writing to path:'%s', wanted to write %s, conflict: %s",
			path, string(j), string(resBody))
	}
	return status, nil
}

// RawDelete deletes the resource at path. Expects http.StatusNoContent as
// response, otherwise it will flag an error. Returns the actual http status
// code.
func (c Client) RawDelete(path string) (int, error) {
	r, _ := http.NewRequestWithContext(c.context(), http.MethodDelete, c.url+path, nil)
	status, resBody, err := c.do(r)
	if err != nil {
		return status, err
	}
	if status != http.StatusNoContent {
		return status, errors.New(strings.TrimSpace(string(resBody)))
	}
	return status, nil
}
