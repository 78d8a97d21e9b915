// Package extract converts free-text availability statements into
// normalized, confidence-scored time intervals and candidate location
// strings.
//
// Time extraction runs an ordered list of independent candidate strategies;
// the first strategy that yields at least one interval wins:
//
//  1. Explicit ranges ("2pm - 5pm", "7 to 9pm"), confidence 0.9. An endpoint
//     missing an am/pm marker inherits the other endpoint's marker.
//  2. Standalone times with surrounding context ("free after 7pm",
//     "around 6:30pm"), confidence 0.7. The context keywords select the
//     window shape: after/from, before/until, around/at, or a default
//     two-hour window.
//  3. Relative phrases ("tonight", "tomorrow morning", "Saturday evening"),
//     confidence 0.8 for tonight/tomorrow phrases, 0.7 for weekday+period
//     combinations. Phrase lookups are cumulative within a message.
//
// Independently of the strategies above, every weekday name not consumed by
// a relative phrase emits a low-precision 14:00-20:00 fallback slot at
// confidence 0.6, so a bare day mention still yields a workable signal.
//
// Location extraction is independent of time extraction: preposition
// patterns ("at X", "in X", "near X") and a closed dictionary of venue
// nouns. When both lists are non-empty, the first location is attached to
// every interval that has none of its own. This is a shared heuristic, not
// per-interval precision.
//
// Extract is deterministic and side-effect free; malformed text yields empty
// lists, never an error.
package extract
