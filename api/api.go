/*Package api is the RESTful interface consumed by the notice-board web
application and the scheduling layer: device read models, single and bulk
command dispatch, pin classification and device configuration validation.
*/
package api

import (
	"embed"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/classware-tech/switchboard/core/logger"
	"github.com/classware-tech/switchboard/core/schema"
	"github.com/classware-tech/switchboard/devices"
	"github.com/classware-tech/switchboard/gpio"
	"github.com/classware-tech/switchboard/hub"
)

//go:embed *.json
var schemaFS embed.FS

// API is the RESTful interface of the device control subsystem.
type API struct {
	store     devices.Store
	hub       *hub.Hub
	validator *schema.Validator
}

// Builder is a builder helper for the API.
type Builder struct {
	// Store is the device record store. This is mandatory.
	Store devices.Store
	// Hub is the device connectivity hub. This is mandatory.
	Hub *hub.Hub
	// Router is a mux router. This is mandatory.
	Router *mux.Router
}

// MustNewAPI realizes the API and adds the routes to the router. It panics
// when the builder is incomplete.
func MustNewAPI(b *Builder) *API {
	if b.Store == nil {
		panic("store is missing")
	}
	if b.Hub == nil {
		panic("hub is missing")
	}
	if b.Router == nil {
		panic("router is missing")
	}

	validator, err := schema.NewValidatorFromFS(schemaFS)
	if err != nil {
		panic(err)
	}

	a := &API{
		store:     b.Store,
		hub:       b.Hub,
		validator: validator,
	}
	a.handleRoutes(b.Router)
	return a
}

// deviceResponse is a device record with the computed online state. The
// stored status alone can lag behind by up to one sweep interval.
type deviceResponse struct {
	*devices.DeviceRecord
	Online bool `json:"online"`
}

func (a *API) deviceResponse(record *devices.DeviceRecord) deviceResponse {
	return deviceResponse{DeviceRecord: record, Online: a.hub.IsOnline(record)}
}

// switchConfig is the provisioning payload for one switch.
type switchConfig struct {
	SwitchID   *uuid.UUID `json:"switch_id,omitempty"`
	Name       string     `json:"name"`
	GPIO       int        `json:"gpio"`
	ManualPin  *int       `json:"manual_pin,omitempty"`
	Type       string     `json:"type,omitempty"`
	ManualMode string     `json:"manual_mode,omitempty"`
}

// deviceConfig is the provisioning payload for one device.
type deviceConfig struct {
	Platform     string                      `json:"platform"`
	Name         string                      `json:"name,omitempty"`
	Switches     []switchConfig              `json:"switches"`
	MotionSensor *devices.MotionSensorConfig `json:"motion_sensor,omitempty"`
}

func (c *deviceConfig) pins() ([]gpio.SwitchPins, *gpio.MotionPins) {
	pins := make([]gpio.SwitchPins, len(c.Switches))
	for i, sw := range c.Switches {
		pins[i] = gpio.SwitchPins{Name: sw.Name, GPIO: sw.GPIO, ManualPin: sw.ManualPin}
	}
	var motion *gpio.MotionPins
	if c.MotionSensor != nil {
		motion = &gpio.MotionPins{Enabled: c.MotionSensor.Enabled, Pin: c.MotionSensor.Pin}
	}
	return pins, motion
}

func (a *API) handleRoutes(router *mux.Router) {
	log.Println("api: handle route /devices GET")
	log.Println("api: handle route /devices/{device_id} GET")
	log.Println("api: handle route /devices/{device_id}/config PUT")
	log.Println("api: handle route /devices/{device_id}/switches/{switch_id}/command POST")
	log.Println("api: handle route /commands/bulk POST")
	log.Println("api: handle route /pins/{pin} GET")
	log.Println("api: handle route /devices/validate POST")

	router.Handle("/devices", handlers.CompressHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		records, err := a.store.List(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		response := make([]deviceResponse, 0, len(records))
		for _, record := range records {
			response = append(response, a.deviceResponse(record))
		}
		w.Header().Set("Content-Type", "application/json")
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		encoder.Encode(response)
	}))).Methods(http.MethodGet)

	router.HandleFunc("/devices/{device_id}", func(w http.ResponseWriter, r *http.Request) {
		params := mux.Vars(r)
		deviceID, err := uuid.Parse(params["device_id"])
		if err != nil {
			http.Error(w, "invalid device id", http.StatusBadRequest)
			return
		}
		record, err := a.store.FindByID(r.Context(), deviceID)
		if err == devices.ErrNotFound {
			http.Error(w, "no such device", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		encoder.Encode(a.deviceResponse(record))
	}).Methods(http.MethodGet)

	router.HandleFunc("/devices/{device_id}/config", func(w http.ResponseWriter, r *http.Request) {
		params := mux.Vars(r)
		deviceID, err := uuid.Parse(params["device_id"])
		if err != nil {
			http.Error(w, "invalid device id", http.StatusBadRequest)
			return
		}
		body, _ := io.ReadAll(r.Body)
		if err := a.validator.ValidateString(string(body), "device_config"); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var config deviceConfig
		if err := json.Unmarshal(body, &config); err != nil {
			http.Error(w, "invalid json data", http.StatusBadRequest)
			return
		}

		pins, motion := config.pins()
		result := gpio.ValidateDeviceConfig(pins, motion, config.Platform)
		if !result.Valid {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(result)
			return
		}

		record, err := a.store.FindByID(r.Context(), deviceID)
		if err == devices.ErrNotFound {
			http.Error(w, "no such device", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		record.Platform = config.Platform
		if config.Name != "" {
			record.Name = config.Name
		}
		record.Switches = make([]devices.Switch, len(config.Switches))
		for i, sw := range config.Switches {
			id := uuid.New()
			if sw.SwitchID != nil {
				id = *sw.SwitchID
			}
			record.Switches[i] = devices.Switch{
				ID:         id,
				Name:       sw.Name,
				GPIO:       sw.GPIO,
				ManualPin:  sw.ManualPin,
				Type:       sw.Type,
				ManualMode: devices.ManualMode(sw.ManualMode),
			}
		}
		record.MotionSensor = config.MotionSensor

		if err := a.store.Save(r.Context(), record); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		logger.FromContext(r.Context()).Infoln("device", record.MAC, "reconfigured with", len(record.Switches), "switches")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result)
	}).Methods(http.MethodPut)

	router.HandleFunc("/devices/{device_id}/switches/{switch_id}/command", func(w http.ResponseWriter, r *http.Request) {
		params := mux.Vars(r)
		deviceID, err := uuid.Parse(params["device_id"])
		if err != nil {
			http.Error(w, "invalid device id", http.StatusBadRequest)
			return
		}
		switchID, err := uuid.Parse(params["switch_id"])
		if err != nil {
			http.Error(w, "invalid switch id", http.StatusBadRequest)
			return
		}
		var body struct {
			State bool `json:"state"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json data", http.StatusBadRequest)
			return
		}

		err = a.hub.Dispatcher().DispatchSingle(r.Context(), hub.SingleCommand{
			DeviceID: deviceID,
			SwitchID: switchID,
			State:    body.State,
		})
		switch err {
		case nil:
			w.WriteHeader(http.StatusAccepted)
		case devices.ErrNotFound:
			http.Error(w, "no such device", http.StatusNotFound)
		case hub.ErrUnknownSwitch:
			http.Error(w, "no such switch", http.StatusNotFound)
		case hub.ErrUnreachable:
			http.Error(w, "device unreachable", http.StatusConflict)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}).Methods(http.MethodPost)

	router.HandleFunc("/commands/bulk", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			State      bool        `json:"state"`
			DeviceIDs  []uuid.UUID `json:"device_ids"`
			SwitchType string      `json:"switch_type,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json data", http.StatusBadRequest)
			return
		}

		sent := a.hub.Dispatcher().DispatchBulk(r.Context(), hub.BulkCommand{
			State:      body.State,
			DeviceIDs:  body.DeviceIDs,
			SwitchType: body.SwitchType,
		})
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(struct {
			Sent int `json:"sent"`
		}{Sent: sent})
	}).Methods(http.MethodPost)

	router.HandleFunc("/pins/{pin}", func(w http.ResponseWriter, r *http.Request) {
		params := mux.Vars(r)
		pin, err := strconv.Atoi(params["pin"])
		if err != nil {
			http.Error(w, "invalid pin number", http.StatusBadRequest)
			return
		}
		platform := r.URL.Query().Get("platform")
		if platform == "" {
			platform = gpio.DefaultPlatform
		}
		allowProblematic := r.URL.Query().Get("allow_problematic") == "true"

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(gpio.Classify(pin, allowProblematic, platform))
	}).Methods(http.MethodGet)

	router.HandleFunc("/devices/validate", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if err := a.validator.ValidateString(string(body), "device_config"); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var config deviceConfig
		if err := json.Unmarshal(body, &config); err != nil {
			http.Error(w, "invalid json data", http.StatusBadRequest)
			return
		}

		pins, motion := config.pins()
		w.Header().Set("Content-Type", "application/json")
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		encoder.Encode(gpio.ValidateDeviceConfig(pins, motion, config.Platform))
	}).Methods(http.MethodPost)
}
