package entities

// DeviceKind classifies the hardware behind a registered device.
type DeviceKind string

const (
	DeviceKindSignagePlayer DeviceKind = "signage-player"
	DeviceKindSpeaker       DeviceKind = "speaker"
	DeviceKindCamera        DeviceKind = "camera"
	DeviceKindOther         DeviceKind = "other"
)

// DeviceStatus is the backend-reported operational state.
type DeviceStatus string

const (
	DeviceStatusOnline  DeviceStatus = "online"
	DeviceStatusOffline DeviceStatus = "offline"
	DeviceStatusError   DeviceStatus = "error"
)

// Device mirrors the backend's device record. Field names follow the
// platform wire format (Spanish keys), values are the backend's enums.
type Device struct {
	ID              string             `json:"id"`
	Name            string             `json:"nombre"`
	Kind            DeviceKind         `json:"tipo"`
	Status          DeviceStatus       `json:"estado"`
	Location        string             `json:"ubicacion"`
	Address         string             `json:"direccionIp"`
	SoftwareVersion string             `json:"versionSoftware"`
	Readings        map[string]float64 `json:"lecturas,omitempty"`
	UpdatedAt       string             `json:"actualizado,omitempty"`
}

// DeviceUpdate is a partial device mutation as carried by an
// estado_dispositivo frame. Nil fields were absent on the wire and
// must leave the stored value untouched.
type DeviceUpdate struct {
	ID              string              `json:"id"`
	Name            *string             `json:"nombre"`
	Kind            *DeviceKind         `json:"tipo"`
	Status          *DeviceStatus       `json:"estado"`
	Location        *string             `json:"ubicacion"`
	Address         *string             `json:"direccionIp"`
	SoftwareVersion *string             `json:"versionSoftware"`
	Readings        *map[string]float64 `json:"lecturas"`
}

// ContentProgress reports playback position of a content item on a device.
type ContentProgress struct {
	DeviceID  string  `json:"dispositivoId"`
	ContentID string  `json:"contenidoId"`
	Progress  float64 `json:"progreso"`
}

// DeviceAlert is a backend-raised warning about a device.
type DeviceAlert struct {
	DeviceID string `json:"dispositivoId"`
	Level    string `json:"nivel"`
	Message  string `json:"mensaje"`
}

// MetricsBatch carries a batch of telemetry readings for a device.
type MetricsBatch struct {
	DeviceID string             `json:"dispositivoId"`
	Metrics  map[string]float64 `json:"metricas"`
}
