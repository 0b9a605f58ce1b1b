// Each player writes one or more "What would you do if..." questions, and answers each one themselves
// Once everyone is done (or the host gets impatient), the host ends the round
// Questions and answers are then scrambled: every question is read with someone else's answer
// The scramble is a derangement, so nobody's question keeps its own answer
// Results are shown to all players at once, with the original authors of each question and answer

// Display formats:
// Lobby list with a checkmark per finished player
// Reveal page listing each recombined question/answer pair with author names

// Implementation details:
// - Use websockets to push every state change to all connected players
// - Identify players by cookie on first connection; the first player to join a pin becomes host
// - Pins are 4-digit decimal, reserved at creation, collision-checked against live sessions

// How to play
// - The host opens the home page and creates a game, then shares the pin (or QR code)
// - Players join by pin, enter a name, and submit their questions and answers
// - The host reveals the scrambled pairs, everyone laughs, and the host can start a new round

package games
