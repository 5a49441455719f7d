package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atrium/models"
	"atrium/services"
	"atrium/store"
	"atrium/utils"
)

type testAPI struct {
	router *gin.Engine
	store  *store.Memory
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mem := store.NewMemory()
	logger := utils.NewLogger()
	publisher := services.NewPublisher()
	engine := services.NewOccupancyEngine(mem, publisher, logger, 3, 0)
	rooms := services.NewRoomService(mem, publisher, logger)
	users := services.NewUserService(mem, publisher, logger)

	roomHandler := NewRoomHandler(rooms, engine, logger)
	userHandler := NewUserHandler(users, engine, logger)

	router := gin.New()
	api := router.Group("/api/v1")
	api.GET("/rooms", roomHandler.ListRooms)
	api.POST("/rooms", roomHandler.CreateRoom)
	api.GET("/rooms/:id", roomHandler.GetRoom)
	api.PATCH("/rooms/:id", roomHandler.UpdateRoom)
	api.DELETE("/rooms/:id", roomHandler.DeleteRoom)
	api.POST("/rooms/:id/assign", roomHandler.AssignHomeOffice)
	api.POST("/rooms/:id/visit", roomHandler.VisitOffice)
	api.GET("/users/:id", userHandler.GetUser)
	api.POST("/users/:id/leave", userHandler.LeaveOffice)

	return &testAPI{router: router, store: mem}
}

func (a *testAPI) request(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) createRoom(t *testing.T, name string, roomType models.RoomType, capacity int) models.Room {
	t.Helper()
	rec := a.request(t, http.MethodPost, "/api/v1/rooms", models.CreateRoomRequest{
		Name:         name,
		Type:         roomType,
		MaxOccupants: capacity,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var room models.Room
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &room))
	return room
}

func (a *testAPI) seedUser(id, name string) {
	a.store.SeedUser(models.User{
		ID:     id,
		Name:   name,
		Email:  id + "@example.com",
		Status: models.StatusOnline,
	})
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestCreateAndGetRoom(t *testing.T) {
	api := newTestAPI(t)

	room := api.createRoom(t, "Corner Suite", models.RoomTypeOffice, 4)
	assert.NotEmpty(t, room.ID)
	assert.Equal(t, "Corner Suite", room.Name)
	assert.NotNil(t, room.AssignedUsers)
	assert.Empty(t, room.AssignedUsers)

	rec := api.request(t, http.MethodGet, "/api/v1/rooms/"+room.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var fetched models.Room
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fetched))
	assert.Equal(t, room.ID, fetched.ID)
}

func TestCreateRoomValidation(t *testing.T) {
	api := newTestAPI(t)

	rec := api.request(t, http.MethodPost, "/api/v1/rooms", map[string]interface{}{
		"name": "No Type",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetRoomNotFound(t *testing.T) {
	api := newTestAPI(t)

	rec := api.request(t, http.MethodGet, "/api/v1/rooms/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Room not found", errorMessage(t, rec))
}

func TestAssignHomeOfficeEndpoint(t *testing.T) {
	api := newTestAPI(t)
	api.seedUser("u1", "Ada")
	room := api.createRoom(t, "Office A", models.RoomTypeOffice, 2)

	rec := api.request(t, http.MethodPost, "/api/v1/rooms/"+room.ID+"/assign", models.OccupancyRequest{UserID: "u1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = api.request(t, http.MethodGet, "/api/v1/users/u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var user models.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	require.NotNil(t, user.HomeOfficeID)
	assert.Equal(t, room.ID, *user.HomeOfficeID)
	require.NotNil(t, user.CurrentOfficeID)
	assert.Equal(t, room.ID, *user.CurrentOfficeID)
}

func TestAssignHomeOfficeFullReturnsConflict(t *testing.T) {
	api := newTestAPI(t)
	room := api.createRoom(t, "Office A", models.RoomTypeOffice, 1)

	api.seedUser("u1", "Ada")
	api.seedUser("u2", "Grace")

	rec := api.request(t, http.MethodPost, "/api/v1/rooms/"+room.ID+"/assign", models.OccupancyRequest{UserID: "u1"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.request(t, http.MethodPost, "/api/v1/rooms/"+room.ID+"/assign", models.OccupancyRequest{UserID: "u2"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Office has reached maximum assigned users", errorMessage(t, rec))
}

func TestVisitOfficeGateReturnsForbidden(t *testing.T) {
	api := newTestAPI(t)
	office := api.createRoom(t, "Office A", models.RoomTypeOffice, 2)
	other := api.createRoom(t, "Office B", models.RoomTypeOffice, 2)

	api.seedUser("owner", "Ada")
	api.seedUser("visitor", "Grace")

	rec := api.request(t, http.MethodPost, "/api/v1/rooms/"+office.ID+"/assign", models.OccupancyRequest{UserID: "owner"})
	require.Equal(t, http.StatusOK, rec.Code)

	// The owner steps out, so the office cannot receive visitors.
	rec = api.request(t, http.MethodPost, "/api/v1/rooms/"+other.ID+"/visit", models.OccupancyRequest{UserID: "owner"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = api.request(t, http.MethodPost, "/api/v1/rooms/"+office.ID+"/visit", models.OccupancyRequest{UserID: "visitor"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Cannot visit when assigned user is not present", errorMessage(t, rec))
}

func TestVisitMeetingRoomAtCapacity(t *testing.T) {
	api := newTestAPI(t)
	room := api.createRoom(t, "Huddle", models.RoomTypeMeetingRoom, 2)

	for i := 1; i <= 3; i++ {
		api.seedUser(fmt.Sprintf("u%d", i), fmt.Sprintf("User %d", i))
	}

	for i := 1; i <= 2; i++ {
		rec := api.request(t, http.MethodPost, "/api/v1/rooms/"+room.ID+"/visit", models.OccupancyRequest{UserID: fmt.Sprintf("u%d", i)})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec := api.request(t, http.MethodPost, "/api/v1/rooms/"+room.ID+"/visit", models.OccupancyRequest{UserID: "u3"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Office is at maximum capacity", errorMessage(t, rec))
}

func TestLeaveWithoutOfficeReturnsUnprocessable(t *testing.T) {
	api := newTestAPI(t)
	api.seedUser("u1", "Ada")

	rec := api.request(t, http.MethodPost, "/api/v1/users/u1/leave", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "User is not currently in any office", errorMessage(t, rec))
}

func TestUpdateRoomLayout(t *testing.T) {
	api := newTestAPI(t)
	room := api.createRoom(t, "Office A", models.RoomTypeOffice, 2)

	name := "Office A2"
	posX := 40
	rec := api.request(t, http.MethodPatch, "/api/v1/rooms/"+room.ID, models.UpdateRoomRequest{
		Name: &name,
		PosX: &posX,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated models.Room
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "Office A2", updated.Name)
	assert.Equal(t, 40, updated.PosX)
}

func TestDeleteRoom(t *testing.T) {
	api := newTestAPI(t)
	room := api.createRoom(t, "Office A", models.RoomTypeOffice, 2)

	rec := api.request(t, http.MethodDelete, "/api/v1/rooms/"+room.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.request(t, http.MethodGet, "/api/v1/rooms/"+room.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
