// Package domain models distribution-network outage records and the rules
// that group them into incidents.
//
// # Data Source
//
// Outage rows come from the OMS outage export (one row per outage stage) and,
// optionally, from the CM customer ticket export. Both are spreadsheets; the
// loaders map their columns onto [Event] and [Ticket] once, at the boundary,
// with [ParseEventRow] and [ParseTicketRow].
//
// # Export Conventions
//
// Outage IDs:
//
//	An outage keeps its ID across stages ("kademe"), so the same ID appears
//	on several rows. Spreadsheet tools store numeric IDs as floats, which is
//	why "1234567.0" and "1234567" are treated as the same ID.
//
// Timestamps:
//
//	Day-first, "02.01.2006 15:04:05". Stage rows carry their own end time;
//	the effective end of an outage is the latest end across its rows.
//
// Transformer numbers ("CBS TM No"):
//
//	Only filled for low-voltage distribution outages, whose source
//	classification ("Kaynağa Göre") is "Dağıtım-AG". Empty and "nan" mean
//	absent.
//
// # Chaining
//
// Outages on the same network element form a chain when one starts before the
// previous one has ended (nested) or within a tolerance after it (sequential).
// The tolerance depends on how long the previous outage lasted:
//
//	duration >= CriticalHours  ->  ToleranceAboveMinutes (default 60)
//	otherwise                  ->  ToleranceBelowMinutes (default 15)
//
// Distribution outages are also chained per transformer across different
// network elements (equipment recurrences). Rows of the same outage never link
// to each other.
//
// # Cross-references
//
// When the ticket export is available each incident lists the customers that
// opened tickets on all of its outages, and the tickets opened before an
// outage began ("Öncesi") or after it ended ("Sonrası") for outages whose call
// timestamps fall outside their own bounds.
package domain
