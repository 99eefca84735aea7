package usecases

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"signage-console/entities"
	"signage-console/presence"
	"signage-console/realtime"
	"signage-console/repositories"
	"signage-console/store"
)

// Inbound frame payloads. Each tipo carries its own body shape.
type deviceStateFrame struct {
	Tipo   string                `json:"tipo"`
	Device entities.DeviceUpdate `json:"dispositivo"`
}

type chatMessageFrame struct {
	Tipo    string               `json:"tipo"`
	Message entities.ChatMessage `json:"mensaje"`
}

type readReceiptFrame struct {
	Tipo    string               `json:"tipo"`
	Receipt entities.ReadReceipt `json:"recibo"`
}

type conversationClosedFrame struct {
	Tipo           string `json:"tipo"`
	ConversationID string `json:"conversacionId"`
}

type serverErrorFrame struct {
	Tipo    string `json:"tipo"`
	Message string `json:"mensaje"`
	Code    string `json:"codigo"`
}

type presenceFrame struct {
	Tipo           string `json:"tipo"`
	ConversationID string `json:"conversacionId"`
	UserID         string `json:"usuarioId"`
}

// RegisterDeviceHandlers binds the device-channel frame tipos to the
// device store. Unparseable bodies are dropped by the handler the same
// way the dispatcher drops unparseable envelopes.
func RegisterDeviceHandlers(d *realtime.Dispatcher, devices *store.DeviceStore, log zerolog.Logger) {
	d.Register("estado_dispositivo", func(raw json.RawMessage) {
		var f deviceStateFrame
		if err := json.Unmarshal(raw, &f); err != nil {
			log.Warn().Err(err).Msg("bad estado_dispositivo body")
			return
		}
		devices.Apply(f.Device)
	})

	d.Register("progreso_contenido", func(raw json.RawMessage) {
		var p entities.ContentProgress
		if err := json.Unmarshal(raw, &p); err != nil {
			log.Warn().Err(err).Msg("bad progreso_contenido body")
			return
		}
		devices.SetProgress(p)
	})

	d.Register("metricas", func(raw json.RawMessage) {
		var m entities.MetricsBatch
		if err := json.Unmarshal(raw, &m); err != nil {
			log.Warn().Err(err).Msg("bad metricas body")
			return
		}
		devices.MergeReadings(m.DeviceID, m.Metrics)
	})

	d.Register("alerta", func(raw json.RawMessage) {
		var a entities.DeviceAlert
		if err := json.Unmarshal(raw, &a); err != nil {
			log.Warn().Err(err).Msg("bad alerta body")
			return
		}
		devices.AddAlert(a)
		log.Warn().Str("device", a.DeviceID).Str("level", a.Level).
			Str("message", a.Message).Msg("device alert")
	})
}

// RegisterChatHandlers binds the chat-channel frame tipos to the message
// store, the pending-operation table and the presence tracker. An echoed
// message resolves its pending entry by correlation id; the store's
// id-keyed merge keeps the conversation free of duplicates either way.
func RegisterChatHandlers(d *realtime.Dispatcher, messages *store.MessageStore, pending *PendingTable, tracker *presence.Tracker, archive repositories.MessageArchive, log zerolog.Logger) {
	d.Register("nuevo_mensaje", func(raw json.RawMessage) {
		var f chatMessageFrame
		if err := json.Unmarshal(raw, &f); err != nil {
			log.Warn().Err(err).Msg("bad nuevo_mensaje body")
			return
		}
		f.Message.Delivery = entities.DeliverySent
		messages.Upsert(f.Message)
		pending.Confirm(f.Message.ID)
		if archive != nil {
			if err := archive.Save(&f.Message); err != nil {
				log.Warn().Err(err).Str("message", f.Message.ID).Msg("message not archived")
			}
		}
	})

	d.Register("mensaje_leido", func(raw json.RawMessage) {
		var f readReceiptFrame
		if err := json.Unmarshal(raw, &f); err != nil {
			log.Warn().Err(err).Msg("bad mensaje_leido body")
			return
		}
		messages.MarkRead(f.Receipt.ConversationID, f.Receipt.MessageID)
	})

	d.Register("conversacion_cerrada", func(raw json.RawMessage) {
		var f conversationClosedFrame
		if err := json.Unmarshal(raw, &f); err != nil {
			log.Warn().Err(err).Msg("bad conversacion_cerrada body")
			return
		}
		messages.Close(f.ConversationID)
	})

	d.Register("error_servidor", func(raw json.RawMessage) {
		var f serverErrorFrame
		if err := json.Unmarshal(raw, &f); err != nil {
			log.Warn().Err(err).Msg("bad error_servidor body")
			return
		}
		log.Error().Str("code", f.Code).Str("message", f.Message).Msg("server error frame")
	})

	d.Register("escribiendo", func(raw json.RawMessage) {
		var f presenceFrame
		if err := json.Unmarshal(raw, &f); err != nil {
			return
		}
		tracker.HandleRemote(entities.PresenceSignal{
			ConversationID: f.ConversationID,
			UserID:         f.UserID,
			Kind:           entities.PresenceTyping,
		})
	})

	d.Register("dejo_de_escribir", func(raw json.RawMessage) {
		var f presenceFrame
		if err := json.Unmarshal(raw, &f); err != nil {
			return
		}
		tracker.HandleRemote(entities.PresenceSignal{
			ConversationID: f.ConversationID,
			UserID:         f.UserID,
			Kind:           entities.PresenceStopped,
		})
	})
}

// DeviceLister is the slice of the backend client the initial sync needs.
type DeviceLister interface {
	ListDevices(ctx context.Context) ([]entities.Device, error)
}

// SyncDevices primes the device store from the REST registry. Live frames
// layered on top are idempotent merges, so ordering against the initial
// listing does not matter.
func SyncDevices(ctx context.Context, client DeviceLister, devices *store.DeviceStore) error {
	list, err := client.ListDevices(ctx)
	if err != nil {
		return err
	}
	devices.Replace(list)
	return nil
}
