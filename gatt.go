package rn4871

// Service describes a GATT service to provision onto the module.
type Service struct {
	UUID            string
	Characteristics []Characteristic
}

// Characteristic describes one characteristic of a Service. Handle is
// filled in by Provision.
type Characteristic struct {
	UUID       string
	Properties uint8
	Len        uint8
	Handle     uint16
}

// Provision pushes a service definition onto the module: enter command
// mode, stop advertising, clear the previous definition, apply the
// serialized name and the service layout, resolve the characteristic
// handles, then reboot so the new GATT table takes effect and re-enter
// command mode. The module is left in command mode, not advertising;
// starting advertising is the caller's decision.
func (d *Device) Provision(name string, svc *Service) error {
	if err := d.EnterCommandMode(); err != nil {
		return err
	}
	if err := d.StopAdvertising(); err != nil {
		return err
	}
	if err := d.ClearAllServices(); err != nil {
		return err
	}
	if err := d.SetSerializedName(name); err != nil {
		return err
	}
	if err := d.SetServiceUUID(svc.UUID); err != nil {
		return err
	}
	for i := range svc.Characteristics {
		c := &svc.Characteristics[i]
		if err := d.SetCharacteristicUUID(c.UUID, c.Properties, c.Len); err != nil {
			return err
		}
	}
	for i := range svc.Characteristics {
		c := &svc.Characteristics[i]
		c.Handle = d.FindHandle(c.UUID, c.Properties)
	}
	if err := d.Reboot(); err != nil {
		return err
	}
	return d.EnterCommandMode()
}
