/*
Package log provides structured logging for Burrow using zerolog.

A single global Logger is configured once via Init — JSON lines for
production, console format for development — and packages derive child
loggers from it. WithComponent tags a subsystem (broker, client), and
WithConn tags a connection's lifecycle logs with its broker-assigned id and
remote address so one client's frames can be traced through the dispatcher.

	log.Init(log.Config{Level: "info", JSONOutput: true})

	brokerLog := log.WithComponent("broker")
	brokerLog.Info().Str("addr", "127.0.0.1:9876").Msg("Listening")

	connLog := log.WithConn(42, conn.RemoteAddr().String())
	connLog.Debug().Str("topic", "orders").Msg("Subscribed")
*/
package log
