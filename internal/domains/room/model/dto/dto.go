package dto

import (
	"mime/multipart"
	"net/http"
	"strings"

	"meetroom/internal/domains/room/model"
	"meetroom/shared"
	gDto "meetroom/shared/dto"
	gModel "meetroom/shared/model"
	"meetroom/shared/timezone"

	"github.com/google/uuid"
)

const (
	formName        = "name"
	formLocation    = "location"
	formCapacity    = "capacity"
	formDescription = "description"
	formActive      = "active"
	formImage       = "image"
)

// Image is an optional uploaded picture of a room.
type Image struct {
	Header *multipart.FileHeader `validate:"omitempty,mimetypes=image/png image/jpg image/jpeg,maxfilesize=1"`
	File   multipart.File
}

// Close releases the uploaded file, if any.
func (i *Image) Close() {
	if i.File != nil {
		_ = i.File.Close()
	}
}

// Extension is the original file extension including the dot, or empty.
func (i *Image) Extension() string {
	if i.Header == nil {
		return ""
	}

	if idx := strings.LastIndex(i.Header.Filename, "."); idx >= 0 && idx < len(i.Header.Filename)-1 {
		return i.Header.Filename[idx:]
	}

	return ""
}

func readImage(r *http.Request) Image {
	file, header, err := r.FormFile(formImage)
	if err != nil {
		return Image{}
	}

	return Image{Header: header, File: file}
}

type CreateRoomRequest struct {
	Name        string `json:"name"        validate:"required,max=100"`
	Location    string `json:"location"    validate:"omitempty,max=100"`
	Capacity    int    `json:"capacity"    validate:"omitempty,min=0,max=10000"`
	Description string `json:"description" validate:"omitempty,max=1000"`
	Active      *bool  `json:"active"`
	Image       Image  `json:"-"`
}

// FromForm reads a multipart room form. Unparseable numbers and flags are left unset.
func (c *CreateRoomRequest) FromForm(r *http.Request) {
	c.Name = strings.TrimSpace(r.FormValue(formName))
	c.Location = strings.TrimSpace(r.FormValue(formLocation))
	c.Description = r.FormValue(formDescription)
	c.Active = shared.ConvertStringToBool(r.FormValue(formActive))

	if capacity := r.FormValue(formCapacity); capacity != "" {
		if value, err := shared.ConvertStringToInt(capacity); err == nil {
			c.Capacity = value
		}
	}

	c.Image = readImage(r)
}

func (c *CreateRoomRequest) ToModel(user string, imageURL string) model.Room {
	active := true
	if c.Active != nil {
		active = *c.Active
	}

	return model.Room{
		ID:          uuid.NewString(),
		Name:        c.Name,
		Location:    c.Location,
		Capacity:    c.Capacity,
		Description: c.Description,
		Image:       imageURL,
		Active:      active,
		Metadata:    gModel.NewMetadata(user, timezone.Now()),
	}
}

// UpdateRoomRequest only carries the fields being changed; zero values are left untouched.
type UpdateRoomRequest struct {
	Name        string `db:"name"        json:"name"        validate:"omitempty,max=100"`
	Location    string `db:"location"    json:"location"    validate:"omitempty,max=100"`
	Capacity    *int   `db:"capacity"    json:"capacity"    validate:"omitempty,min=0,max=10000"`
	Description string `db:"description" json:"description" validate:"omitempty,max=1000"`
	Active      *bool  `db:"active"      json:"active"`
	Image       Image  `json:"-"`
}

func (u *UpdateRoomRequest) FromForm(r *http.Request) {
	u.Name = strings.TrimSpace(r.FormValue(formName))
	u.Location = strings.TrimSpace(r.FormValue(formLocation))
	u.Description = r.FormValue(formDescription)
	u.Active = shared.ConvertStringToBool(r.FormValue(formActive))

	if capacity := r.FormValue(formCapacity); capacity != "" {
		if value, err := shared.ConvertStringToInt(capacity); err == nil {
			u.Capacity = &value
		}
	}

	u.Image = readImage(r)
}

// Apply returns current with the requested changes laid over it.
func (u *UpdateRoomRequest) Apply(current model.Room) model.Room {
	next := current

	if u.Name != "" {
		next.Name = u.Name
	}

	if u.Location != "" {
		next.Location = u.Location
	}

	if u.Capacity != nil {
		next.Capacity = *u.Capacity
	}

	if u.Description != "" {
		next.Description = u.Description
	}

	if u.Active != nil {
		next.Active = *u.Active
	}

	return next
}

// AvailabilityQuery selects the day of a room's slot grid.
type AvailabilityQuery struct {
	Date string `json:"date" validate:"required,ymd"`
}

// AvailabilityRangeQuery selects an inclusive span of days.
type AvailabilityRangeQuery struct {
	StartDate string `json:"start_date" validate:"required,ymd"`
	EndDate   string `json:"end_date"   validate:"required,ymd"`
}

type RoomResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Location    string `json:"location"`
	Capacity    int    `json:"capacity"`
	Description string `json:"description"`
	Image       string `json:"image"`
	Active      bool   `json:"active"`
	gDto.Metadata
}

func (r *RoomResponse) FromModel(model model.Room) {
	r.ID = model.ID
	r.Name = model.Name
	r.Location = model.Location
	r.Capacity = model.Capacity
	r.Description = model.Description
	r.Image = model.Image
	r.Active = model.Active
	r.Metadata.FromModel(model.Metadata)
}

type GetRoomsResponse struct {
	Rooms     []RoomResponse `json:"rooms"`
	TotalPage int            `json:"total_page"`
	TotalData int            `json:"total_data"`
}

func (r *GetRoomsResponse) FromModels(models []model.Room, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)

	r.Rooms = make([]RoomResponse, len(models))
	for i, mod := range models {
		r.Rooms[i].FromModel(mod)
	}
}
