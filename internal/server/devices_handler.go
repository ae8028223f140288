package server

import (
	"errors"
	"net/http"

	"relaydash/internal/devices"
)

type landingView struct {
	DeviceIP   string
	DeviceType string
	Channel    string
	Devices    []devices.Device
}

// handleLanding lists every device. The path parameters are display context
// only; they do not filter the list.
func (s *Server) handleLanding(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "landing", "Devices", landingView{
		DeviceIP:   pathParam(r, "deviceIP"),
		DeviceType: pathParam(r, "deviceType"),
		Channel:    pathParam(r, "channel"),
		Devices:    s.devices.Load(),
	})
}

func (s *Server) handleAddPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "add", "Add device", nil)
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	d := deviceFromForm(r)
	if _, err := s.devices.Add(r.Context(), d); err != nil {
		http.Error(w, "could not save device", http.StatusInternalServerError)
		return
	}
	s.flash(w, r, "Device added successfully!")
	http.Redirect(w, r, landingURL(d.IP, d.Type, d.Channel), http.StatusFound)
}

func (s *Server) handleEditPage(w http.ResponseWriter, r *http.Request) {
	d, ok := s.devices.Find(pathParam(r, "deviceIP"))
	if !ok {
		s.deviceNotFound(w, r)
		return
	}
	s.render(w, r, "edit", "Edit device", d)
}

// handleEdit overwrites the first device with the path IP. The IP itself is
// one of the overwritten fields, so the device's key may change here.
func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	next := deviceFromForm(r)
	d, err := s.devices.Update(r.Context(), pathParam(r, "deviceIP"), next)
	if errors.Is(err, devices.ErrNotFound) {
		s.deviceNotFound(w, r)
		return
	}
	if err != nil {
		http.Error(w, "could not save device", http.StatusInternalServerError)
		return
	}
	s.flash(w, r, "Device updated successfully!")
	http.Redirect(w, r, landingURL(d.IP, d.Type, d.Channel), http.StatusFound)
}

func (s *Server) deviceNotFound(w http.ResponseWriter, r *http.Request) {
	s.flash(w, r, "Device not found.")
	http.Redirect(w, r, s.defaultLanding(), http.StatusFound)
}

func deviceFromForm(r *http.Request) devices.Device {
	return devices.New(
		r.PostFormValue("device_name"),
		r.PostFormValue("device_ip"),
		r.PostFormValue("device_type"),
		r.PostFormValue("device_channel"),
	)
}
