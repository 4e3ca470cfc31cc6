// Package mailer delivers verification and password-reset codes.
//
// [LogMailer] writes codes to a slog logger and is meant for local
// development. [KafkaMailer] publishes a JSON message per code to a Kafka
// topic; an out-of-process worker owns actual email delivery.
package mailer
