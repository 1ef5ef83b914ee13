package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/picklight-core/internal/ack"
	"github.com/nerrad567/picklight-core/internal/gateway"
	"github.com/nerrad567/picklight-core/internal/shelf"
)

// Request bodies for the /light routes. The field casing is part of the
// wire contract the warehouse frontends already send.

type turnOnRequest struct {
	ShelfNumber int    `json:"ShelfNumber"`
	PositionID  int    `json:"PositionId"`
	Color       string `json:"Color"`
}

type turnOffRequest struct {
	ShelfNumber int `json:"ShelfNumber"`
	PositionID  int `json:"PositionId"`
}

type shelfSelection struct {
	ShelfNumber int `json:"ShelfNumber"`
}

type shelfSelectionWithColor struct {
	ShelfNumber int    `json:"ShelfNumber"`
	Color       string `json:"Color"`
}

type setLEDsRequest struct {
	MACAddress string `json:"Mac_Address"`
	LEDs       []int  `json:"LEDs"`
	Color      string `json:"Color"`
}

type unsetLEDsRequest struct {
	MACAddress string `json:"Mac_Address"`
	LEDs       []int  `json:"LEDs"`
}

type createShelfRequest struct {
	ShelfNumber int    `json:"ShelfNumber"`
	MACAddress  string `json:"Mac_Address"`
}

type shelfPositionRequest struct {
	ShelfNumber int   `json:"ShelfNumber"`
	PositionID  int   `json:"PositionId"`
	LEDs        []int `json:"LEDs"`
}

type deletePositionRequest struct {
	ShelfNumber int `json:"ShelfNumber"`
	PositionID  int `json:"PositionId"`
}

type resetControllerRequest struct {
	MACAddress string `json:"Mac_Address"`
}

// handleTurnOn lights a stored position in its configured LEDs.
func (s *Server) handleTurnOn(w http.ResponseWriter, r *http.Request) {
	var req turnOnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	err := s.gateway.TurnOn(r.Context(), req.ShelfNumber, req.PositionID, req.Color)
	switch {
	case err == nil:
		leds, _ := s.registry.LEDs(req.ShelfNumber, req.PositionID)
		writeMessage(w, http.StatusOK,
			"Turned LEDs %v on on shelf with number %d in position with ID %d with color %s.",
			leds, req.ShelfNumber, req.PositionID, req.Color)
	case errors.Is(err, shelf.ErrShelfNotFound):
		writeShelfNotFound(w, req.ShelfNumber)
	case errors.Is(err, shelf.ErrInvalidPosition):
		writePositionRange(w, req.PositionID)
	case errors.Is(err, shelf.ErrPositionNotFound):
		writeMessage(w, http.StatusNotFound,
			"The position with ID %d in the shelf with number %d was not found in our database.",
			req.PositionID, req.ShelfNumber)
	case errors.Is(err, gateway.ErrInvalidColor):
		writeColorFormat(w, req.Color)
	case errors.Is(err, ack.ErrTimeout):
		s.writeShelfTimeout(w, req.ShelfNumber, "")
	default:
		s.writeUnexpected(w, r, err)
	}
}

// handleTurnOff darkens a stored position.
func (s *Server) handleTurnOff(w http.ResponseWriter, r *http.Request) {
	var req turnOffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	err := s.gateway.TurnOff(r.Context(), req.ShelfNumber, req.PositionID)
	switch {
	case err == nil:
		leds, _ := s.registry.LEDs(req.ShelfNumber, req.PositionID)
		writeMessage(w, http.StatusOK,
			"Turned LEDs %v off on shelf with number %d in position with ID %d.",
			leds, req.ShelfNumber, req.PositionID)
	case errors.Is(err, shelf.ErrShelfNotFound):
		writeShelfNotFound(w, req.ShelfNumber)
	case errors.Is(err, shelf.ErrInvalidPosition):
		writePositionRange(w, req.PositionID)
	case errors.Is(err, shelf.ErrPositionNotFound):
		writeMessage(w, http.StatusNotFound,
			"The position with ID %d in the shelf with number %d was not found in our database.",
			req.PositionID, req.ShelfNumber)
	case errors.Is(err, ack.ErrTimeout):
		s.writeShelfTimeout(w, req.ShelfNumber, "")
	default:
		s.writeUnexpected(w, r, err)
	}
}

// handleTurnOnAll lights every stored position of a shelf in one colour.
func (s *Server) handleTurnOnAll(w http.ResponseWriter, r *http.Request) {
	var req shelfSelectionWithColor
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	err := s.gateway.TurnOnAll(r.Context(), req.ShelfNumber, req.Color)
	switch {
	case err == nil:
		writeMessage(w, http.StatusOK, "Turned all positions on on shelf with number %d", req.ShelfNumber)
	case errors.Is(err, shelf.ErrShelfNotFound):
		writeShelfNotFound(w, req.ShelfNumber)
	case errors.Is(err, gateway.ErrInvalidColor):
		writeMessage(w, http.StatusBadRequest,
			"The parameter Color doesn't comply with the expected format. Expected format is '#FFFFFF'")
	case errors.Is(err, ack.ErrTimeout):
		s.writeShelfTimeout(w, req.ShelfNumber, "")
	default:
		s.writeUnexpected(w, r, err)
	}
}

// handleTurnOffAll darkens every LED on a shelf.
func (s *Server) handleTurnOffAll(w http.ResponseWriter, r *http.Request) {
	var req shelfSelection
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	err := s.gateway.TurnOffAll(r.Context(), req.ShelfNumber)
	switch {
	case err == nil:
		writeMessage(w, http.StatusOK, "Turned all positions off on shelf with number %d", req.ShelfNumber)
	case errors.Is(err, shelf.ErrShelfNotFound):
		writeShelfNotFound(w, req.ShelfNumber)
	case errors.Is(err, ack.ErrTimeout):
		s.writeShelfTimeout(w, req.ShelfNumber, "")
	default:
		s.writeUnexpected(w, r, err)
	}
}

// handleSetLEDs lights an explicit LED list on a controller, bypassing
// stored positions.
func (s *Server) handleSetLEDs(w http.ResponseWriter, r *http.Request) {
	var req setLEDsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	err := s.gateway.SetLEDs(r.Context(), req.MACAddress, req.LEDs, req.Color)
	switch {
	case err == nil:
		writeMessage(w, http.StatusOK, "Set LEDs %v on ESP32 with Mac_Address %s with color %s",
			req.LEDs, req.MACAddress, req.Color)
	case errors.Is(err, shelf.ErrControllerNotFound):
		writeMessage(w, http.StatusNotFound,
			"The shelf with the MAC-Address %s was not found in our database.", req.MACAddress)
	case errors.Is(err, shelf.ErrInvalidLEDs):
		writeLEDRange(w, req.LEDs)
	case errors.Is(err, gateway.ErrInvalidColor):
		writeColorFormat(w, req.Color)
	case errors.Is(err, ack.ErrTimeout):
		writeMACTimeout(w, req.MACAddress, "")
	default:
		s.writeUnexpected(w, r, err)
	}
}

// handleUnsetLEDs darkens an explicit LED list on a controller.
func (s *Server) handleUnsetLEDs(w http.ResponseWriter, r *http.Request) {
	var req unsetLEDsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	err := s.gateway.UnsetLEDs(r.Context(), req.MACAddress, req.LEDs)
	switch {
	case err == nil:
		writeMessage(w, http.StatusOK, "Unset LEDs %v on ESP32 with Mac_Address %s.",
			req.LEDs, req.MACAddress)
	case errors.Is(err, shelf.ErrControllerNotFound):
		writeMessage(w, http.StatusNotFound,
			"The shelf with the MAC-Address %s was not found in our database.", req.MACAddress)
	case errors.Is(err, shelf.ErrInvalidLEDs):
		writeLEDRange(w, req.LEDs)
	case errors.Is(err, ack.ErrTimeout):
		writeMACTimeout(w, req.MACAddress, "")
	default:
		s.writeUnexpected(w, r, err)
	}
}

// handleCreateShelf binds a shelf number to a registered, unused
// controller. Pure registry work; no controller round-trip.
func (s *Server) handleCreateShelf(w http.ResponseWriter, r *http.Request) {
	var req createShelfRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	err := s.registry.CreateShelf(r.Context(), req.ShelfNumber, req.MACAddress)
	switch {
	case err == nil:
		writeMessage(w, http.StatusOK, "Successfully created Shelf %d with MAC-address %s!",
			req.ShelfNumber, req.MACAddress)
	case errors.Is(err, shelf.ErrShelfExists):
		writeMessage(w, http.StatusNotAcceptable,
			"Cannot create Shelf because the given shelf number %d is already being used. Try using another shelf number.",
			req.ShelfNumber)
	case errors.Is(err, shelf.ErrControllerNotFound):
		writeMessage(w, http.StatusNotFound,
			"Cannot create Shelf because the given MAC-address %s doesn't exist in our database, which means that the ESP32 with this MAC-address hasn't registered to the database.",
			req.MACAddress)
	case errors.Is(err, shelf.ErrControllerInUse):
		writeMessage(w, http.StatusNotAcceptable,
			"Cannot create Shelf because the ESP32 with given MAC-address %s is already being used by another Shelf.",
			req.MACAddress)
	default:
		s.writeUnexpected(w, r, err)
	}
}

// handleCreatePosition stores a new position once the controller has
// acknowledged the create command.
func (s *Server) handleCreatePosition(w http.ResponseWriter, r *http.Request) {
	var req shelfPositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	err := s.gateway.CreatePosition(r.Context(), req.ShelfNumber, req.PositionID, req.LEDs)
	switch {
	case err == nil:
		writeMessage(w, http.StatusOK, "Added position with ID %d on shelf with number %d with LEDs %v.",
			req.PositionID, req.ShelfNumber, req.LEDs)
	case errors.Is(err, shelf.ErrShelfNotFound):
		writeShelfNotFound(w, req.ShelfNumber)
	case errors.Is(err, shelf.ErrPositionExists):
		writeMessage(w, http.StatusNotAcceptable,
			"The position with ID %d in the shelf with number %d already exists so cannot create position. Maybe you are trying to update an existing position? Then use the route light/updatePosition",
			req.PositionID, req.ShelfNumber)
	case errors.Is(err, shelf.ErrInvalidPosition):
		writePositionRange(w, req.PositionID)
	case errors.Is(err, shelf.ErrInvalidLEDs):
		writeLEDRange(w, req.LEDs)
	case errors.Is(err, shelf.ErrLEDConflict):
		writeMessage(w, http.StatusNotAcceptable,
			"Cannot create position because one or more of the sent LEDs %v is already being used by another shelf position in the shelf with number %d. Try using another LED array.",
			req.LEDs, req.ShelfNumber)
	case errors.Is(err, ack.ErrTimeout):
		s.writeShelfTimeout(w, req.ShelfNumber, " Cannot guarantee shelf position was created!")
	default:
		s.writeUnexpected(w, r, err)
	}
}

// handleUpdatePosition replaces a stored position once the controller
// has acknowledged the update command.
func (s *Server) handleUpdatePosition(w http.ResponseWriter, r *http.Request) {
	var req shelfPositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	err := s.gateway.UpdatePosition(r.Context(), req.ShelfNumber, req.PositionID, req.LEDs)
	switch {
	case err == nil:
		writeMessage(w, http.StatusOK, "Updated position with ID %d on shelf with number %d with LEDs %v.",
			req.PositionID, req.ShelfNumber, req.LEDs)
	case errors.Is(err, shelf.ErrShelfNotFound):
		writeShelfNotFound(w, req.ShelfNumber)
	case errors.Is(err, shelf.ErrPositionNotFound):
		writeMessage(w, http.StatusNotAcceptable,
			"The position with ID %d in the shelf with number %d doesn't exist so cannot update position. Maybe you are trying to create a position? Then use the route light/createPosition",
			req.PositionID, req.ShelfNumber)
	case errors.Is(err, shelf.ErrInvalidLEDs):
		writeLEDRange(w, req.LEDs)
	case errors.Is(err, shelf.ErrLEDConflict):
		writeMessage(w, http.StatusNotAcceptable,
			"Cannot update position because one or more of the sent LEDs %v is already being used by another shelf position in the shelf with number %d. Try using another LED array.",
			req.LEDs, req.ShelfNumber)
	case errors.Is(err, ack.ErrTimeout):
		s.writeShelfTimeout(w, req.ShelfNumber, " Cannot guarantee shelf position was updated!")
	default:
		s.writeUnexpected(w, r, err)
	}
}

// handleDeletePosition removes a stored position once the controller
// has acknowledged the delete command.
func (s *Server) handleDeletePosition(w http.ResponseWriter, r *http.Request) {
	var req deletePositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	// The LED list goes into the response and is gone after the delete.
	leds, _ := s.registry.LEDs(req.ShelfNumber, req.PositionID)

	err := s.gateway.DeletePosition(r.Context(), req.ShelfNumber, req.PositionID)
	switch {
	case err == nil:
		writeMessage(w, http.StatusOK, "Deleted position with ID %d on shelf with number %d with LEDs %v.",
			req.PositionID, req.ShelfNumber, leds)
	case errors.Is(err, shelf.ErrShelfNotFound):
		writeShelfNotFound(w, req.ShelfNumber)
	case errors.Is(err, shelf.ErrPositionNotFound):
		writeMessage(w, http.StatusNotAcceptable,
			"The position with ID %d in the shelf with number %d doesn't exist so cannot delete position.",
			req.PositionID, req.ShelfNumber)
	case errors.Is(err, ack.ErrTimeout):
		s.writeShelfTimeout(w, req.ShelfNumber, " Cannot guarantee shelf position was deleted!")
	default:
		s.writeUnexpected(w, r, err)
	}
}

// handleDeleteShelf resets the shelf's controller and removes the shelf
// once the reset is acknowledged. The controller record survives and
// becomes available for a new shelf.
func (s *Server) handleDeleteShelf(w http.ResponseWriter, r *http.Request) {
	var req shelfSelection
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	err := s.gateway.DeleteShelf(r.Context(), req.ShelfNumber)
	switch {
	case err == nil:
		writeMessage(w, http.StatusOK, "Deleted shelf with shelf number %d.", req.ShelfNumber)
	case errors.Is(err, shelf.ErrShelfNotFound):
		writeMessage(w, http.StatusNotFound, "Cannot delete Shelf because it was not found in our database.")
	case errors.Is(err, ack.ErrTimeout):
		s.writeShelfTimeout(w, req.ShelfNumber, " Cannot guarantee shelf was deleted!")
	default:
		s.writeUnexpected(w, r, err)
	}
}

// handleGetPositions returns the full shelf record with its positions.
func (s *Server) handleGetPositions(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.Atoi(chi.URLParam(r, "shelfNumber"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "shelf number must be an integer")
		return
	}

	sh, err := s.registry.Shelf(number)
	if err != nil {
		writeShelfNotFound(w, number)
		return
	}

	writeJSON(w, http.StatusOK, sh)
}

// handleGetShelves returns every shelf with its positions.
func (s *Server) handleGetShelves(w http.ResponseWriter, _ *http.Request) {
	shelves := s.registry.ListShelves()
	if len(shelves) == 0 {
		writeMessage(w, http.StatusNotFound, "There are no shelves in our database.")
		return
	}

	writeJSON(w, http.StatusOK, map[string][]shelf.Shelf{"Shelves": shelves})
}

// handleGetMACAddresses returns the MAC addresses of registered
// controllers not yet bound to a shelf.
func (s *Server) handleGetMACAddresses(w http.ResponseWriter, _ *http.Request) {
	macs := s.registry.UnusedMACs()
	if len(macs) == 0 {
		writeMessage(w, http.StatusNotFound, "Sorry, there are no unused ESP32s for your new shelf.")
		return
	}

	writeJSON(w, http.StatusOK, macs)
}

// handleGetESP32 rebinds a shelf to a controller and asks the controller
// to upload its stored positions. The positions arrive asynchronously on
// the config put topic.
func (s *Server) handleGetESP32(w http.ResponseWriter, r *http.Request) {
	mac := r.URL.Query().Get("mac_address")
	if mac == "" {
		writeMessage(w, http.StatusBadRequest, "mac_address query parameter is required")
		return
	}
	number, err := strconv.Atoi(r.URL.Query().Get("shelf_number"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "shelf_number query parameter must be an integer")
		return
	}

	// Which timeout text applies depends on whether the shelf existed
	// before the pull recreated it.
	_, shelfErr := s.registry.Shelf(number)
	existed := shelfErr == nil

	err = s.gateway.PullConfig(r.Context(), mac, number)
	switch {
	case err == nil:
		writeMessage(w, http.StatusOK, "Sent get message to ESP32 with MAC-address %s", mac)
	case errors.Is(err, shelf.ErrControllerNotFound):
		writeMessage(w, http.StatusNotFound,
			"Cannot get data from ESP32 with MAC-address %s because it was not found in our database.", mac)
	case errors.Is(err, shelf.ErrShelfMismatch):
		boundMAC, lookupErr := s.registry.MACForShelf(number)
		if lookupErr != nil {
			boundMAC = "unknown"
		}
		writeMessage(w, http.StatusBadRequest,
			"Couldn't send get message to ESP32 with MAC-address %s because tried to get data from an ESP32 that is assigned to another shelf. The shelf with the number %d is assigned to the ESP32 with the MAC %s",
			boundMAC, number, boundMAC)
	case errors.Is(err, shelf.ErrControllerInUse):
		writeMessage(w, http.StatusBadRequest,
			"Couldn't send get message to ESP32 with MAC-address %s because it is already assigned to another shelf.", mac)
	case errors.Is(err, ack.ErrTimeout):
		if existed {
			writeMessage(w, http.StatusGatewayTimeout,
				"Timeout warning! ESP32 with the Mac_Address %s didn't respond in time or during the reset process a timeout occurred. It is not guaranteed that all positions were reset on the ESP32.", mac)
		} else {
			writeMessage(w, http.StatusGatewayTimeout,
				"Timeout warning! ESP32 with the Mac_Address %s didn't respond in time. A new shelf was created but it is not guaranteed that all positions were gotten from the ESP32.", mac)
		}
	default:
		s.writeUnexpected(w, r, err)
	}
}

// handleResetESP32 erases every position stored on a controller. Works
// on bound and unbound controllers alike.
func (s *Server) handleResetESP32(w http.ResponseWriter, r *http.Request) {
	var req resetControllerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	err := s.gateway.ResetController(r.Context(), req.MACAddress)
	switch {
	case err == nil:
		writeMessage(w, http.StatusOK, "Reset all positions on ESP32 with address %s", req.MACAddress)
	case errors.Is(err, shelf.ErrInvalidMAC):
		writeMessage(w, http.StatusBadRequest, "The Mac_Address %s is not a valid MAC-address.", req.MACAddress)
	case errors.Is(err, ack.ErrTimeout):
		writeMessage(w, http.StatusGatewayTimeout,
			"Timeout warning! ESP32 with the Mac_Address %s didn't respond in time or during the reset process a timeout occurred. It is not guaranteed that all positions were reset on the ESP32.", req.MACAddress)
	default:
		s.writeUnexpected(w, r, err)
	}
}

// handleLoadESP32 replays every stored position of a shelf to its
// controller, one acknowledged update per position.
func (s *Server) handleLoadESP32(w http.ResponseWriter, r *http.Request) {
	var req shelfSelection
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	err := s.gateway.LoadShelf(r.Context(), req.ShelfNumber)
	switch {
	case err == nil:
		writeMessage(w, http.StatusOK, "Loaded all positions to ESP32 with address %s",
			s.macForShelf(req.ShelfNumber))
	case errors.Is(err, shelf.ErrShelfNotFound):
		writeShelfNotFound(w, req.ShelfNumber)
	case errors.Is(err, ack.ErrTimeout):
		writeMessage(w, http.StatusGatewayTimeout,
			"Timeout warning! ESP32 with the Mac_Address %s didn't respond in time or during the loading process a timeout occurred. It is not guaranteed that all positions were loaded to the ESP32.",
			s.macForShelf(req.ShelfNumber))
	default:
		s.writeUnexpected(w, r, err)
	}
}

// macForShelf resolves the controller MAC for response texts.
func (s *Server) macForShelf(number int) string {
	mac, err := s.registry.MACForShelf(number)
	if err != nil {
		return "unknown"
	}
	return mac
}

// writeShelfNotFound writes the canonical shelf 404.
func writeShelfNotFound(w http.ResponseWriter, number int) {
	writeMessage(w, http.StatusNotFound,
		"The shelf with number %d was not found in our database or check if an ESP32 has been assigned to this ShelfNumber.", number)
}

// writePositionRange writes the canonical position id 400.
func writePositionRange(w http.ResponseWriter, id int) {
	writeMessage(w, http.StatusBadRequest,
		"The PositionId %d is either smaller than one or bigger than 255. The ID must be an int in range 0-255 in order to be able to be casted to a byte.", id)
}

// writeColorFormat writes the canonical colour format 400.
func writeColorFormat(w http.ResponseWriter, color string) {
	writeMessage(w, http.StatusBadRequest,
		"The parameter Color '%s' doesn't comply with the expected format. Expected format is '#FFFFFF'", color)
}

// writeLEDRange writes the canonical LED list 400, naming the first
// index outside the byte range.
func writeLEDRange(w http.ResponseWriter, leds []int) {
	if len(leds) == 0 {
		writeMessage(w, http.StatusBadRequest, "The LED list must not be empty.")
		return
	}
	offending := leds[0]
	for _, led := range leds {
		if led < 0 || led > 255 {
			offending = led
			break
		}
	}
	writeMessage(w, http.StatusBadRequest,
		"The parameter LED %d in the given LED Array %v is either smaller than one or bigger than 255. LED must be an int in range 0-255 in order to be able to be casted to a byte.", offending, leds)
}

// writeMACTimeout writes the 504 for commands addressed by MAC.
func writeMACTimeout(w http.ResponseWriter, mac, suffix string) {
	writeMessage(w, http.StatusGatewayTimeout,
		"Timeout warning! ESP32 with the Mac_Address %s didn't respond in time.%s", mac, suffix)
}

// writeShelfTimeout writes the 504 for commands addressed by shelf
// number, naming the controller the shelf is bound to.
func (s *Server) writeShelfTimeout(w http.ResponseWriter, number int, suffix string) {
	writeMACTimeout(w, s.macForShelf(number), suffix)
}

// writeUnexpected logs the error and writes the generic 500.
func (s *Server) writeUnexpected(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("unexpected error handling request",
		"method", r.Method,
		"path", r.URL.Path,
		"error", err,
		"request_id", r.Context().Value(ctxKeyRequestID),
	)
	writeMessage(w, http.StatusInternalServerError, "Something unexpected happened.")
}
