package main

import (
	"context"
	"os"
	"time"

	"signage-console/backend"
	"signage-console/confs"
	"signage-console/db"
	"signage-console/logger"
	"signage-console/presence"
	"signage-console/realtime"
	"signage-console/repositories"
	"signage-console/server"
	"signage-console/store"
	"signage-console/usecases"
)

func main() {
	cfg, err := confs.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Debug: cfg.LogDebug})
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Optional archive; the console runs fully in-memory without it.
	var msgArchive repositories.MessageArchive
	var cmdArchive repositories.CommandArchive
	if cfg.ArchiveEnabled {
		database, err := db.Connect(log)
		if err != nil {
			log.Fatal().Err(err).Msg("archive database unavailable")
		}
		msgArchive = repositories.NewMessagePgArchive(database)
		cmdArchive = repositories.NewCommandPgArchive(database)
	}

	devices := store.NewDeviceStore()
	messages := store.NewMessageStore()
	pending := usecases.NewPendingTable()

	client := backend.NewClient(cfg.BackendURL, 30*time.Second, log)
	commands := usecases.NewCommandGateway(client, cmdArchive, cfg.CommandTimeout, log)

	deviceDispatcher := realtime.NewDispatcher(logger.WithComponent(log, "device-dispatch"))
	chatDispatcher := realtime.NewDispatcher(logger.WithComponent(log, "chat-dispatch"))

	deviceChannel := realtime.NewChannel(realtime.ChannelConfig{
		Name:       "devices",
		URL:        cfg.DeviceSocketURL,
		Policy:     cfg.DevicePolicy,
		Dispatcher: deviceDispatcher,
		Logger:     log,
	})
	chatChannel := realtime.NewChannel(realtime.ChannelConfig{
		Name:       "chat",
		URL:        cfg.ChatSocketURL,
		Policy:     cfg.ChatPolicy,
		Dispatcher: chatDispatcher,
		Logger:     log,
	})

	// Suspend command dispatch while the device view may be stale.
	commands.SetGate(func() bool {
		return deviceChannel.State() != realtime.StateReconnecting
	})

	chat := usecases.NewChatGateway(chatChannel, messages, client, msgArchive, pending,
		cfg.SenderID, cfg.SenderName, log)
	tracker := presence.NewTracker(chat.SignalTyping, cfg.TypingWindow,
		logger.WithComponent(log, "presence"))
	stopSweeper := tracker.StartSweeper(cfg.TypingWindow)
	defer stopSweeper()

	usecases.RegisterDeviceHandlers(deviceDispatcher, devices, logger.WithComponent(log, "device-sync"))
	usecases.RegisterChatHandlers(chatDispatcher, messages, pending, tracker, msgArchive,
		logger.WithComponent(log, "chat-sync"))

	deviceChannel.Connect()
	chatChannel.Connect()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := usecases.SyncDevices(ctx, client, devices); err != nil {
		log.Warn().Err(err).Msg("initial device sync failed, store fills from frames")
	}
	cancel()

	srv := server.NewServer(server.Deps{
		Devices:  devices,
		Messages: messages,
		Backend:  client,
		Commands: commands,
		Chat:     chat,
		Tracker:  tracker,
		Channels: map[string]*realtime.Channel{"devices": deviceChannel, "chat": chatChannel},
		Logger:   log,
	})
	log.Info().Str("addr", cfg.ListenAddr).Msg("console API listening")
	if err := srv.Start(cfg.ListenAddr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
