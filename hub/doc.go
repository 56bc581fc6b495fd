/*Package hub implements the device connectivity and real-time control core
for relay-controller boards.

Every board keeps one persistent websocket connection to the hub. The hub
authenticates boards with a shared secret, tracks their liveness through
heartbeats and a periodic sweep, relays switch commands to reachable boards
and broadcasts sequenced state-change events to observers.

Command delivery is at-most-once and best-effort. The authoritative
confirmation of a new switch state is the board's own later state-update
message, never the dispatch call's return value.
*/
package hub
