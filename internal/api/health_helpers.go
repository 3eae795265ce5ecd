package api

import (
	"context"
	"net/http"
)

type componentStatus struct {
	Component string `json:"component"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

func (h *Handler) componentHealth(ctx context.Context) ([]componentStatus, string, int) {
	overallStatus := "ok"
	statusCode := http.StatusOK
	recordComponent := func(component string, err error) componentStatus {
		status := "ok"
		message := ""
		if err != nil {
			status = "degraded"
			message = err.Error()
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}
		return componentStatus{Component: component, Status: status, Error: message}
	}

	components := make([]componentStatus, 0, 2)
	if h.Store != nil {
		err := h.Store.Ping(ctx)
		components = append(components, recordComponent("datastore", err))
		status := "ok"
		if err != nil {
			status = "degraded"
		}
		h.recorder().SetStoreHealth("datastore", status)
	}
	if blobs := h.blobStore(); blobs.Enabled() {
		components = append(components, componentStatus{Component: "object_storage", Status: "ok"})
	} else {
		components = append(components, componentStatus{Component: "object_storage", Status: "disabled"})
		h.recorder().SetStoreHealth("object_storage", "disabled")
	}

	return components, overallStatus, statusCode
}
