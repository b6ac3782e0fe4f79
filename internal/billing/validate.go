package billing

// Validate runs the pre-submit gates and stores the resulting messages on
// the order. All offending fields are reported together in a fixed order
// rather than one at a time; the list stays attached to the order until the
// next edit clears it.
func (o *Order) Validate() []string {
	var msgs []string
	if o.SalesmanID == "" {
		msgs = append(msgs, "Please select a salesperson before saving the order.")
	}
	if o.DeliveryDate == nil {
		msgs = append(msgs, "Please choose an expected delivery date.")
	}
	if !o.Loaded && len(o.Items) == 0 {
		msgs = append(msgs, "Add at least one item to the order.")
	}
	o.ValidationMessages = msgs
	return msgs
}

// CanSubmit reports whether the order passes all validation gates.
func (o *Order) CanSubmit() bool {
	return len(o.Validate()) == 0
}
