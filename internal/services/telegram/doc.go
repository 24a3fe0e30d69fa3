// Package telegram reads documents out of a messaging channel through a
// Bot-API style HTTP endpoint. Flood-wait responses surface as
// services.ThrottledError so the retry controller can honor the mandated
// delay.
package telegram
