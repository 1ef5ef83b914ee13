package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nerrad567/picklight-core/internal/ack"
	"github.com/nerrad567/picklight-core/internal/gateway"
	"github.com/nerrad567/picklight-core/internal/shelf"
)

const testMACC = "24:6F:28:AA:00:03"

// lightEnv seeds the standard fixture: shelf 1 on controller A with one
// position holding LEDs 1-3.
func lightEnv(t *testing.T) *testEnv {
	t.Helper()

	env := newTestEnv(t)
	seedShelf(t, env.registry, 1, testMACA)
	seedPosition(t, env.registry, 1, 5, []int{1, 2, 3})
	return env
}

func checkResponse(t *testing.T, w *httptest.ResponseRecorder, wantStatus int, wantMessage string) {
	t.Helper()

	if w.Code != wantStatus {
		t.Errorf("status = %d, want %d (body %s)", w.Code, wantStatus, w.Body.String())
	}
	if got := message(t, w); got != wantMessage {
		t.Errorf("message = %q, want %q", got, wantMessage)
	}
}

func TestTurnOn(t *testing.T) {
	env := lightEnv(t)

	t.Run("lights stored position", func(t *testing.T) {
		env.gateway.setErr(nil)
		w := env.request(t, http.MethodPost, "/light/turnOn",
			turnOnRequest{ShelfNumber: 1, PositionID: 5, Color: "#FF0000"})

		checkResponse(t, w, http.StatusOK, fmt.Sprintf(
			"Turned LEDs %v on on shelf with number %d in position with ID %d with color %s.",
			[]int{1, 2, 3}, 1, 5, "#FF0000"))
		if got := env.gateway.lastCall(t); got != "TurnOn(1,5,#FF0000)" {
			t.Errorf("gateway call = %q", got)
		}
	})

	t.Run("unknown shelf", func(t *testing.T) {
		env.gateway.setErr(fmt.Errorf("%w: shelf 9", shelf.ErrShelfNotFound))
		w := env.request(t, http.MethodPost, "/light/turnOn",
			turnOnRequest{ShelfNumber: 9, PositionID: 5, Color: "#FF0000"})

		checkResponse(t, w, http.StatusNotFound,
			"The shelf with number 9 was not found in our database or check if an ESP32 has been assigned to this ShelfNumber.")
	})

	t.Run("position id out of range", func(t *testing.T) {
		env.gateway.setErr(shelf.ErrInvalidPosition)
		w := env.request(t, http.MethodPost, "/light/turnOn",
			turnOnRequest{ShelfNumber: 1, PositionID: 300, Color: "#FF0000"})

		checkResponse(t, w, http.StatusBadRequest,
			"The PositionId 300 is either smaller than one or bigger than 255. The ID must be an int in range 0-255 in order to be able to be casted to a byte.")
	})

	t.Run("unknown position", func(t *testing.T) {
		env.gateway.setErr(shelf.ErrPositionNotFound)
		w := env.request(t, http.MethodPost, "/light/turnOn",
			turnOnRequest{ShelfNumber: 1, PositionID: 9, Color: "#FF0000"})

		checkResponse(t, w, http.StatusNotFound,
			"The position with ID 9 in the shelf with number 1 was not found in our database.")
	})

	t.Run("malformed colour", func(t *testing.T) {
		env.gateway.setErr(gateway.ErrInvalidColor)
		w := env.request(t, http.MethodPost, "/light/turnOn",
			turnOnRequest{ShelfNumber: 1, PositionID: 5, Color: "red"})

		checkResponse(t, w, http.StatusBadRequest,
			"The parameter Color 'red' doesn't comply with the expected format. Expected format is '#FFFFFF'")
	})

	t.Run("ack timeout", func(t *testing.T) {
		env.gateway.setErr(ack.ErrTimeout)
		w := env.request(t, http.MethodPost, "/light/turnOn",
			turnOnRequest{ShelfNumber: 1, PositionID: 5, Color: "#FF0000"})

		checkResponse(t, w, http.StatusGatewayTimeout, fmt.Sprintf(
			"Timeout warning! ESP32 with the Mac_Address %s didn't respond in time.", testMACA))
	})

	t.Run("broker unavailable", func(t *testing.T) {
		env.gateway.setErr(ack.ErrTransportUnavailable)
		w := env.request(t, http.MethodPost, "/light/turnOn",
			turnOnRequest{ShelfNumber: 1, PositionID: 5, Color: "#FF0000"})

		checkResponse(t, w, http.StatusInternalServerError, "Something unexpected happened.")
	})

	t.Run("invalid body", func(t *testing.T) {
		env.gateway.setErr(nil)
		before := env.gateway.callCount()
		w := env.request(t, http.MethodPost, "/light/turnOn", "{not json")

		checkResponse(t, w, http.StatusBadRequest, "invalid JSON body")
		if env.gateway.callCount() != before {
			t.Error("gateway called despite malformed body")
		}
	})
}

func TestTurnOff(t *testing.T) {
	env := lightEnv(t)

	t.Run("darkens stored position", func(t *testing.T) {
		w := env.request(t, http.MethodPost, "/light/turnOff",
			turnOffRequest{ShelfNumber: 1, PositionID: 5})

		checkResponse(t, w, http.StatusOK, fmt.Sprintf(
			"Turned LEDs %v off on shelf with number %d in position with ID %d.", []int{1, 2, 3}, 1, 5))
		if got := env.gateway.lastCall(t); got != "TurnOff(1,5)" {
			t.Errorf("gateway call = %q", got)
		}
	})

	t.Run("unknown position", func(t *testing.T) {
		env.gateway.setErr(shelf.ErrPositionNotFound)
		w := env.request(t, http.MethodPost, "/light/turnOff",
			turnOffRequest{ShelfNumber: 1, PositionID: 9})

		checkResponse(t, w, http.StatusNotFound,
			"The position with ID 9 in the shelf with number 1 was not found in our database.")
	})
}

func TestTurnOnAll(t *testing.T) {
	env := lightEnv(t)

	t.Run("lights whole shelf", func(t *testing.T) {
		w := env.request(t, http.MethodPost, "/light/turnOnAll",
			shelfSelectionWithColor{ShelfNumber: 1, Color: "#00FF00"})

		checkResponse(t, w, http.StatusOK, "Turned all positions on on shelf with number 1")
		if got := env.gateway.lastCall(t); got != "TurnOnAll(1,#00FF00)" {
			t.Errorf("gateway call = %q", got)
		}
	})

	t.Run("malformed colour", func(t *testing.T) {
		env.gateway.setErr(gateway.ErrInvalidColor)
		w := env.request(t, http.MethodPost, "/light/turnOnAll",
			shelfSelectionWithColor{ShelfNumber: 1, Color: "green"})

		checkResponse(t, w, http.StatusBadRequest,
			"The parameter Color doesn't comply with the expected format. Expected format is '#FFFFFF'")
	})

	t.Run("ack timeout", func(t *testing.T) {
		env.gateway.setErr(ack.ErrTimeout)
		w := env.request(t, http.MethodPost, "/light/turnOnAll",
			shelfSelectionWithColor{ShelfNumber: 1, Color: "#00FF00"})

		checkResponse(t, w, http.StatusGatewayTimeout, fmt.Sprintf(
			"Timeout warning! ESP32 with the Mac_Address %s didn't respond in time.", testMACA))
	})
}

func TestTurnOffAll(t *testing.T) {
	env := lightEnv(t)

	w := env.request(t, http.MethodPost, "/light/turnOffAll", shelfSelection{ShelfNumber: 1})

	checkResponse(t, w, http.StatusOK, "Turned all positions off on shelf with number 1")
	if got := env.gateway.lastCall(t); got != "TurnOffAll(1)" {
		t.Errorf("gateway call = %q", got)
	}
}

func TestSetLEDs(t *testing.T) {
	env := lightEnv(t)

	t.Run("lights explicit leds", func(t *testing.T) {
		w := env.request(t, http.MethodPost, "/light/setLEDs",
			setLEDsRequest{MACAddress: testMACA, LEDs: []int{7, 8}, Color: "#0000FF"})

		checkResponse(t, w, http.StatusOK, fmt.Sprintf(
			"Set LEDs %v on ESP32 with Mac_Address %s with color %s", []int{7, 8}, testMACA, "#0000FF"))
		if got := env.gateway.lastCall(t); got != fmt.Sprintf("SetLEDs(%s,%v,#0000FF)", testMACA, []int{7, 8}) {
			t.Errorf("gateway call = %q", got)
		}
	})

	t.Run("unknown controller", func(t *testing.T) {
		env.gateway.setErr(shelf.ErrControllerNotFound)
		w := env.request(t, http.MethodPost, "/light/setLEDs",
			setLEDsRequest{MACAddress: testMACC, LEDs: []int{7}, Color: "#0000FF"})

		checkResponse(t, w, http.StatusNotFound, fmt.Sprintf(
			"The shelf with the MAC-Address %s was not found in our database.", testMACC))
	})

	t.Run("led out of range", func(t *testing.T) {
		env.gateway.setErr(shelf.ErrInvalidLEDs)
		w := env.request(t, http.MethodPost, "/light/setLEDs",
			setLEDsRequest{MACAddress: testMACA, LEDs: []int{3, 300}, Color: "#0000FF"})

		checkResponse(t, w, http.StatusBadRequest, fmt.Sprintf(
			"The parameter LED 300 in the given LED Array %v is either smaller than one or bigger than 255. LED must be an int in range 0-255 in order to be able to be casted to a byte.",
			[]int{3, 300}))
	})

	t.Run("ack timeout", func(t *testing.T) {
		env.gateway.setErr(ack.ErrTimeout)
		w := env.request(t, http.MethodPost, "/light/setLEDs",
			setLEDsRequest{MACAddress: testMACA, LEDs: []int{7}, Color: "#0000FF"})

		checkResponse(t, w, http.StatusGatewayTimeout, fmt.Sprintf(
			"Timeout warning! ESP32 with the Mac_Address %s didn't respond in time.", testMACA))
	})
}

func TestUnsetLEDs(t *testing.T) {
	env := lightEnv(t)

	w := env.request(t, http.MethodPost, "/light/unsetLEDs",
		unsetLEDsRequest{MACAddress: testMACA, LEDs: []int{7, 8}})

	checkResponse(t, w, http.StatusOK, fmt.Sprintf(
		"Unset LEDs %v on ESP32 with Mac_Address %s.", []int{7, 8}, testMACA))
	if got := env.gateway.lastCall(t); got != fmt.Sprintf("UnsetLEDs(%s,%v)", testMACA, []int{7, 8}) {
		t.Errorf("gateway call = %q", got)
	}
}

func TestCreateShelf(t *testing.T) {
	env := lightEnv(t)

	if _, err := env.registry.RegisterController(context.Background(), testMACB); err != nil {
		t.Fatalf("RegisterController: %v", err)
	}
	if _, err := env.registry.RegisterController(context.Background(), testMACC); err != nil {
		t.Fatalf("RegisterController: %v", err)
	}

	t.Run("binds shelf to unused controller", func(t *testing.T) {
		w := env.request(t, http.MethodPut, "/light/createShelf",
			createShelfRequest{ShelfNumber: 2, MACAddress: testMACB})

		checkResponse(t, w, http.StatusOK, fmt.Sprintf(
			"Successfully created Shelf %d with MAC-address %s!", 2, testMACB))
		if !env.registry.ShelfExists(2) {
			t.Error("shelf 2 not stored")
		}
	})

	t.Run("duplicate shelf number", func(t *testing.T) {
		w := env.request(t, http.MethodPut, "/light/createShelf",
			createShelfRequest{ShelfNumber: 1, MACAddress: testMACC})

		checkResponse(t, w, http.StatusNotAcceptable,
			"Cannot create Shelf because the given shelf number 1 is already being used. Try using another shelf number.")
	})

	t.Run("unregistered controller", func(t *testing.T) {
		w := env.request(t, http.MethodPut, "/light/createShelf",
			createShelfRequest{ShelfNumber: 3, MACAddress: "AA:BB:CC:DD:EE:99"})

		checkResponse(t, w, http.StatusNotFound,
			"Cannot create Shelf because the given MAC-address AA:BB:CC:DD:EE:99 doesn't exist in our database, which means that the ESP32 with this MAC-address hasn't registered to the database.")
	})

	t.Run("controller already bound", func(t *testing.T) {
		w := env.request(t, http.MethodPut, "/light/createShelf",
			createShelfRequest{ShelfNumber: 3, MACAddress: testMACA})

		checkResponse(t, w, http.StatusNotAcceptable, fmt.Sprintf(
			"Cannot create Shelf because the ESP32 with given MAC-address %s is already being used by another Shelf.", testMACA))
	})
}

func TestCreatePosition(t *testing.T) {
	env := lightEnv(t)

	t.Run("adds position", func(t *testing.T) {
		w := env.request(t, http.MethodPut, "/light/createPosition",
			shelfPositionRequest{ShelfNumber: 1, PositionID: 6, LEDs: []int{9, 10}})

		checkResponse(t, w, http.StatusOK, fmt.Sprintf(
			"Added position with ID %d on shelf with number %d with LEDs %v.", 6, 1, []int{9, 10}))
		if got := env.gateway.lastCall(t); got != fmt.Sprintf("CreatePosition(1,6,%v)", []int{9, 10}) {
			t.Errorf("gateway call = %q", got)
		}
	})

	t.Run("position already exists", func(t *testing.T) {
		env.gateway.setErr(shelf.ErrPositionExists)
		w := env.request(t, http.MethodPut, "/light/createPosition",
			shelfPositionRequest{ShelfNumber: 1, PositionID: 5, LEDs: []int{9}})

		checkResponse(t, w, http.StatusNotAcceptable,
			"The position with ID 5 in the shelf with number 1 already exists so cannot create position. Maybe you are trying to update an existing position? Then use the route light/updatePosition")
	})

	t.Run("led conflict", func(t *testing.T) {
		env.gateway.setErr(shelf.ErrLEDConflict)
		w := env.request(t, http.MethodPut, "/light/createPosition",
			shelfPositionRequest{ShelfNumber: 1, PositionID: 6, LEDs: []int{1, 2}})

		checkResponse(t, w, http.StatusNotAcceptable, fmt.Sprintf(
			"Cannot create position because one or more of the sent LEDs %v is already being used by another shelf position in the shelf with number %d. Try using another LED array.",
			[]int{1, 2}, 1))
	})

	t.Run("empty led list", func(t *testing.T) {
		env.gateway.setErr(shelf.ErrInvalidLEDs)
		w := env.request(t, http.MethodPut, "/light/createPosition",
			shelfPositionRequest{ShelfNumber: 1, PositionID: 6, LEDs: []int{}})

		checkResponse(t, w, http.StatusBadRequest, "The LED list must not be empty.")
	})

	t.Run("ack timeout", func(t *testing.T) {
		env.gateway.setErr(ack.ErrTimeout)
		w := env.request(t, http.MethodPut, "/light/createPosition",
			shelfPositionRequest{ShelfNumber: 1, PositionID: 6, LEDs: []int{9}})

		checkResponse(t, w, http.StatusGatewayTimeout, fmt.Sprintf(
			"Timeout warning! ESP32 with the Mac_Address %s didn't respond in time. Cannot guarantee shelf position was created!", testMACA))
	})
}

func TestUpdatePosition(t *testing.T) {
	env := lightEnv(t)

	t.Run("replaces position", func(t *testing.T) {
		w := env.request(t, http.MethodPut, "/light/updatePosition",
			shelfPositionRequest{ShelfNumber: 1, PositionID: 5, LEDs: []int{4, 5}})

		checkResponse(t, w, http.StatusOK, fmt.Sprintf(
			"Updated position with ID %d on shelf with number %d with LEDs %v.", 5, 1, []int{4, 5}))
		if got := env.gateway.lastCall(t); got != fmt.Sprintf("UpdatePosition(1,5,%v)", []int{4, 5}) {
			t.Errorf("gateway call = %q", got)
		}
	})

	t.Run("position missing", func(t *testing.T) {
		env.gateway.setErr(shelf.ErrPositionNotFound)
		w := env.request(t, http.MethodPut, "/light/updatePosition",
			shelfPositionRequest{ShelfNumber: 1, PositionID: 9, LEDs: []int{4}})

		checkResponse(t, w, http.StatusNotAcceptable,
			"The position with ID 9 in the shelf with number 1 doesn't exist so cannot update position. Maybe you are trying to create a position? Then use the route light/createPosition")
	})

	t.Run("ack timeout", func(t *testing.T) {
		env.gateway.setErr(ack.ErrTimeout)
		w := env.request(t, http.MethodPut, "/light/updatePosition",
			shelfPositionRequest{ShelfNumber: 1, PositionID: 5, LEDs: []int{4}})

		checkResponse(t, w, http.StatusGatewayTimeout, fmt.Sprintf(
			"Timeout warning! ESP32 with the Mac_Address %s didn't respond in time. Cannot guarantee shelf position was updated!", testMACA))
	})
}

func TestDeletePosition(t *testing.T) {
	env := lightEnv(t)

	t.Run("removes position", func(t *testing.T) {
		w := env.request(t, http.MethodDelete, "/light/deletePosition",
			deletePositionRequest{ShelfNumber: 1, PositionID: 5})

		checkResponse(t, w, http.StatusOK, fmt.Sprintf(
			"Deleted position with ID %d on shelf with number %d with LEDs %v.", 5, 1, []int{1, 2, 3}))
		if got := env.gateway.lastCall(t); got != "DeletePosition(1,5)" {
			t.Errorf("gateway call = %q", got)
		}
	})

	t.Run("position missing", func(t *testing.T) {
		env.gateway.setErr(shelf.ErrPositionNotFound)
		w := env.request(t, http.MethodDelete, "/light/deletePosition",
			deletePositionRequest{ShelfNumber: 1, PositionID: 9})

		checkResponse(t, w, http.StatusNotAcceptable,
			"The position with ID 9 in the shelf with number 1 doesn't exist so cannot delete position.")
	})

	t.Run("ack timeout", func(t *testing.T) {
		env.gateway.setErr(ack.ErrTimeout)
		w := env.request(t, http.MethodDelete, "/light/deletePosition",
			deletePositionRequest{ShelfNumber: 1, PositionID: 5})

		checkResponse(t, w, http.StatusGatewayTimeout, fmt.Sprintf(
			"Timeout warning! ESP32 with the Mac_Address %s didn't respond in time. Cannot guarantee shelf position was deleted!", testMACA))
	})
}

func TestDeleteShelf(t *testing.T) {
	env := lightEnv(t)

	t.Run("removes shelf", func(t *testing.T) {
		w := env.request(t, http.MethodDelete, "/light/deleteShelf", shelfSelection{ShelfNumber: 1})

		checkResponse(t, w, http.StatusOK, "Deleted shelf with shelf number 1.")
		if got := env.gateway.lastCall(t); got != "DeleteShelf(1)" {
			t.Errorf("gateway call = %q", got)
		}
	})

	t.Run("shelf missing", func(t *testing.T) {
		env.gateway.setErr(shelf.ErrShelfNotFound)
		w := env.request(t, http.MethodDelete, "/light/deleteShelf", shelfSelection{ShelfNumber: 9})

		checkResponse(t, w, http.StatusNotFound,
			"Cannot delete Shelf because it was not found in our database.")
	})

	t.Run("ack timeout", func(t *testing.T) {
		env.gateway.setErr(ack.ErrTimeout)
		w := env.request(t, http.MethodDelete, "/light/deleteShelf", shelfSelection{ShelfNumber: 1})

		checkResponse(t, w, http.StatusGatewayTimeout, fmt.Sprintf(
			"Timeout warning! ESP32 with the Mac_Address %s didn't respond in time. Cannot guarantee shelf was deleted!", testMACA))
	})
}

func TestGetPositions(t *testing.T) {
	env := lightEnv(t)

	t.Run("returns shelf with positions", func(t *testing.T) {
		w := env.request(t, http.MethodGet, "/light/getPositions/1", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d (body %s)", w.Code, http.StatusOK, w.Body.String())
		}

		var sh shelf.Shelf
		if err := json.Unmarshal(w.Body.Bytes(), &sh); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if sh.Number != 1 || sh.MACAddress != testMACA {
			t.Errorf("shelf = %+v", sh)
		}
		if len(sh.Positions) != 1 || sh.Positions[0].ID != 5 {
			t.Fatalf("positions = %+v", sh.Positions)
		}
	})

	t.Run("non-numeric shelf number", func(t *testing.T) {
		w := env.request(t, http.MethodGet, "/light/getPositions/abc", nil)
		checkResponse(t, w, http.StatusBadRequest, "shelf number must be an integer")
	})

	t.Run("unknown shelf", func(t *testing.T) {
		w := env.request(t, http.MethodGet, "/light/getPositions/9", nil)
		checkResponse(t, w, http.StatusNotFound,
			"The shelf with number 9 was not found in our database or check if an ESP32 has been assigned to this ShelfNumber.")
	})
}

func TestGetShelves(t *testing.T) {
	t.Run("empty database", func(t *testing.T) {
		env := newTestEnv(t)
		w := env.request(t, http.MethodGet, "/light/getShelves", nil)
		checkResponse(t, w, http.StatusNotFound, "There are no shelves in our database.")
	})

	t.Run("returns all shelves", func(t *testing.T) {
		env := lightEnv(t)
		w := env.request(t, http.MethodGet, "/light/getShelves", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
		}

		var resp map[string][]shelf.Shelf
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		shelves := resp["Shelves"]
		if len(shelves) != 1 || shelves[0].Number != 1 {
			t.Errorf("shelves = %+v", shelves)
		}
	})
}

func TestGetMACAddresses(t *testing.T) {
	env := lightEnv(t)

	t.Run("no unused controllers", func(t *testing.T) {
		w := env.request(t, http.MethodGet, "/light/getMACAddresses", nil)
		checkResponse(t, w, http.StatusNotFound, "Sorry, there are no unused ESP32s for your new shelf.")
	})

	t.Run("lists unused controllers", func(t *testing.T) {
		if _, err := env.registry.RegisterController(context.Background(), testMACB); err != nil {
			t.Fatalf("RegisterController: %v", err)
		}

		w := env.request(t, http.MethodGet, "/light/getMACAddresses", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
		}

		var macs []string
		if err := json.Unmarshal(w.Body.Bytes(), &macs); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if len(macs) != 1 || macs[0] != testMACB {
			t.Errorf("macs = %v, want [%s]", macs, testMACB)
		}
	})
}

func TestGetESP32(t *testing.T) {
	env := lightEnv(t)

	t.Run("missing mac parameter", func(t *testing.T) {
		w := env.request(t, http.MethodGet, "/light/getESP32?shelf_number=1", nil)
		checkResponse(t, w, http.StatusBadRequest, "mac_address query parameter is required")
	})

	t.Run("non-numeric shelf number", func(t *testing.T) {
		w := env.request(t, http.MethodGet, "/light/getESP32?mac_address="+testMACA+"&shelf_number=abc", nil)
		checkResponse(t, w, http.StatusBadRequest, "shelf_number query parameter must be an integer")
	})

	t.Run("pulls config", func(t *testing.T) {
		w := env.request(t, http.MethodGet, "/light/getESP32?mac_address="+testMACA+"&shelf_number=1", nil)

		checkResponse(t, w, http.StatusOK, fmt.Sprintf(
			"Sent get message to ESP32 with MAC-address %s", testMACA))
		if got := env.gateway.lastCall(t); got != fmt.Sprintf("PullConfig(%s,1)", testMACA) {
			t.Errorf("gateway call = %q", got)
		}
	})

	t.Run("unknown controller", func(t *testing.T) {
		env.gateway.setErr(shelf.ErrControllerNotFound)
		w := env.request(t, http.MethodGet, "/light/getESP32?mac_address="+testMACC+"&shelf_number=1", nil)

		checkResponse(t, w, http.StatusNotFound, fmt.Sprintf(
			"Cannot get data from ESP32 with MAC-address %s because it was not found in our database.", testMACC))
	})

	t.Run("shelf bound to another controller", func(t *testing.T) {
		seedShelf(t, env.registry, 2, testMACB)
		env.gateway.setErr(shelf.ErrShelfMismatch)
		w := env.request(t, http.MethodGet, "/light/getESP32?mac_address="+testMACA+"&shelf_number=2", nil)

		checkResponse(t, w, http.StatusBadRequest, fmt.Sprintf(
			"Couldn't send get message to ESP32 with MAC-address %s because tried to get data from an ESP32 that is assigned to another shelf. The shelf with the number %d is assigned to the ESP32 with the MAC %s",
			testMACB, 2, testMACB))
	})

	t.Run("controller bound to another shelf", func(t *testing.T) {
		env.gateway.setErr(shelf.ErrControllerInUse)
		w := env.request(t, http.MethodGet, "/light/getESP32?mac_address="+testMACB+"&shelf_number=3", nil)

		checkResponse(t, w, http.StatusBadRequest, fmt.Sprintf(
			"Couldn't send get message to ESP32 with MAC-address %s because it is already assigned to another shelf.", testMACB))
	})

	t.Run("timeout on existing shelf", func(t *testing.T) {
		env.gateway.setErr(ack.ErrTimeout)
		w := env.request(t, http.MethodGet, "/light/getESP32?mac_address="+testMACA+"&shelf_number=1", nil)

		checkResponse(t, w, http.StatusGatewayTimeout, fmt.Sprintf(
			"Timeout warning! ESP32 with the Mac_Address %s didn't respond in time or during the reset process a timeout occurred. It is not guaranteed that all positions were reset on the ESP32.", testMACA))
	})

	t.Run("timeout on new shelf", func(t *testing.T) {
		env.gateway.setErr(ack.ErrTimeout)
		w := env.request(t, http.MethodGet, "/light/getESP32?mac_address="+testMACA+"&shelf_number=9", nil)

		checkResponse(t, w, http.StatusGatewayTimeout, fmt.Sprintf(
			"Timeout warning! ESP32 with the Mac_Address %s didn't respond in time. A new shelf was created but it is not guaranteed that all positions were gotten from the ESP32.", testMACA))
	})
}

func TestResetESP32(t *testing.T) {
	env := lightEnv(t)

	t.Run("resets controller", func(t *testing.T) {
		w := env.request(t, http.MethodPost, "/light/resetESP32",
			resetControllerRequest{MACAddress: testMACA})

		checkResponse(t, w, http.StatusOK, fmt.Sprintf(
			"Reset all positions on ESP32 with address %s", testMACA))
		if got := env.gateway.lastCall(t); got != fmt.Sprintf("ResetController(%s)", testMACA) {
			t.Errorf("gateway call = %q", got)
		}
	})

	t.Run("malformed mac", func(t *testing.T) {
		env.gateway.setErr(shelf.ErrInvalidMAC)
		w := env.request(t, http.MethodPost, "/light/resetESP32",
			resetControllerRequest{MACAddress: "not-a-mac"})

		checkResponse(t, w, http.StatusBadRequest, "The Mac_Address not-a-mac is not a valid MAC-address.")
	})

	t.Run("ack timeout", func(t *testing.T) {
		env.gateway.setErr(ack.ErrTimeout)
		w := env.request(t, http.MethodPost, "/light/resetESP32",
			resetControllerRequest{MACAddress: testMACA})

		checkResponse(t, w, http.StatusGatewayTimeout, fmt.Sprintf(
			"Timeout warning! ESP32 with the Mac_Address %s didn't respond in time or during the reset process a timeout occurred. It is not guaranteed that all positions were reset on the ESP32.", testMACA))
	})
}

func TestLoadESP32(t *testing.T) {
	env := lightEnv(t)

	t.Run("replays positions", func(t *testing.T) {
		w := env.request(t, http.MethodPost, "/light/loadESP32", shelfSelection{ShelfNumber: 1})

		checkResponse(t, w, http.StatusOK, fmt.Sprintf(
			"Loaded all positions to ESP32 with address %s", testMACA))
		if got := env.gateway.lastCall(t); got != "LoadShelf(1)" {
			t.Errorf("gateway call = %q", got)
		}
	})

	t.Run("unknown shelf", func(t *testing.T) {
		env.gateway.setErr(shelf.ErrShelfNotFound)
		w := env.request(t, http.MethodPost, "/light/loadESP32", shelfSelection{ShelfNumber: 9})

		checkResponse(t, w, http.StatusNotFound,
			"The shelf with number 9 was not found in our database or check if an ESP32 has been assigned to this ShelfNumber.")
	})

	t.Run("ack timeout", func(t *testing.T) {
		env.gateway.setErr(ack.ErrTimeout)
		w := env.request(t, http.MethodPost, "/light/loadESP32", shelfSelection{ShelfNumber: 1})

		checkResponse(t, w, http.StatusGatewayTimeout, fmt.Sprintf(
			"Timeout warning! ESP32 with the Mac_Address %s didn't respond in time or during the loading process a timeout occurred. It is not guaranteed that all positions were loaded to the ESP32.", testMACA))
	})
}
