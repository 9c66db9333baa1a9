// Package http exposes the read-only monitoring API over HTTP: the fault and
// symptom registries, the configuration-defect report and the Prometheus
// metrics endpoint.
package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	safety "home-safety-monitor/internal/domain/safety"
	"home-safety-monitor/internal/faultman"
	"home-safety-monitor/internal/version"
)

// Service is the registry surface the API reads from.
type Service interface {
	Symptoms() []*safety.Symptom
	Symptom(symptomID string) (*safety.Symptom, error)
	Faults() []*safety.Fault
	Fault(faultID string) (*safety.Fault, error)
	UnresolvedMechanisms() []string
}

// SymptomResponse is the wire form of one symptom.
type SymptomResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Mechanism string `json:"sm_name"`
	Component string `json:"component"`
	Lifecycle string `json:"sm_state"`
	State     string `json:"state"`
}

// FaultResponse is the wire form of one fault.
type FaultResponse struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Level             int      `json:"level"`
	RelatedMechanisms []string `json:"related_sms"`
	State             string   `json:"state"`
}

// HealthResponse reports liveness and build information.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// errorResponse is the wire form of request failures.
type errorResponse struct {
	Error string `json:"error"`
}

// Handlers serves the monitoring API from a registry service.
type Handlers struct {
	service Service
}

// NewHandlers creates handlers reading from the given service.
func NewHandlers(service Service) *Handlers {
	return &Handlers{service: service}
}

// NewRouter builds the gin engine with all monitoring routes attached.
func NewRouter(service Service) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())

	handlers := NewHandlers(service)
	handlers.Register(router)

	return router
}

// Register attaches the monitoring routes to the router.
func (h *Handlers) Register(router *gin.Engine) {
	router.GET("/health", h.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	v1.GET("/symptoms", h.ListSymptoms)
	v1.GET("/symptoms/:id", h.GetSymptom)
	v1.GET("/faults", h.ListFaults)
	v1.GET("/faults/:id", h.GetFault)
	v1.GET("/mechanisms/unresolved", h.ListUnresolvedMechanisms)
}

// Health reports liveness and the build version.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: version.Short(),
	})
}

// ListSymptoms returns every registered symptom in stable order.
func (h *Handlers) ListSymptoms(c *gin.Context) {
	symptoms := h.service.Symptoms()

	responses := make([]SymptomResponse, 0, len(symptoms))
	for _, symptom := range symptoms {
		responses = append(responses, symptomResponse(symptom))
	}

	c.JSON(http.StatusOK, responses)
}

// GetSymptom returns one symptom by id.
func (h *Handlers) GetSymptom(c *gin.Context) {
	symptom, err := h.service.Symptom(c.Param("id"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, faultman.ErrUnknownSymptom) {
			status = http.StatusNotFound
		}

		c.JSON(status, errorResponse{Error: err.Error()})

		return
	}

	c.JSON(http.StatusOK, symptomResponse(symptom))
}

// ListFaults returns every registered fault in stable order.
func (h *Handlers) ListFaults(c *gin.Context) {
	faults := h.service.Faults()

	responses := make([]FaultResponse, 0, len(faults))
	for _, fault := range faults {
		responses = append(responses, faultResponse(fault))
	}

	c.JSON(http.StatusOK, responses)
}

// GetFault returns one fault by id.
func (h *Handlers) GetFault(c *gin.Context) {
	fault, err := h.service.Fault(c.Param("id"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, faultman.ErrUnknownFault) {
			status = http.StatusNotFound
		}

		c.JSON(status, errorResponse{Error: err.Error()})

		return
	}

	c.JSON(http.StatusOK, faultResponse(fault))
}

// ListUnresolvedMechanisms reports the mechanism names that resolve to zero or
// several faults. An empty list means the configuration is sound.
func (h *Handlers) ListUnresolvedMechanisms(c *gin.Context) {
	unresolved := h.service.UnresolvedMechanisms()
	if unresolved == nil {
		unresolved = []string{}
	}

	c.JSON(http.StatusOK, gin.H{"unresolved": unresolved})
}

func symptomResponse(symptom *safety.Symptom) SymptomResponse {
	response := SymptomResponse{
		ID:        symptom.ID,
		Name:      symptom.Name,
		Mechanism: symptom.SMName,
		Lifecycle: symptom.SMState.String(),
		State:     symptom.Latched.String(),
	}

	if symptom.Module != nil {
		response.Component = symptom.Module.ComponentName()
	}

	return response
}

func faultResponse(fault *safety.Fault) FaultResponse {
	return FaultResponse{
		ID:                fault.ID,
		Name:              fault.Name,
		Level:             fault.Level,
		RelatedMechanisms: fault.RelatedMechanisms,
		State:             fault.State.String(),
	}
}
