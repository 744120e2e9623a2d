package grammar

// ValidVatID checks the control digit of an eleven-digit Italian VAT number.
func ValidVatID(id string) bool {
	if len(id) != 11 {
		return false
	}
	sum := 0
	for i := 0; i < 10; i++ {
		c := id[i]
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if i%2 == 1 {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
	}
	last := id[10]
	if last < '0' || last > '9' {
		return false
	}
	return (10-sum%10)%10 == int(last-'0')
}
