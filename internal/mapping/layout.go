package mapping

// StandardLayout is used for every device that has no table of its own. It
// follows the W3C "standard" gamepad button order with the left stick on
// axes 0 and 1.
var StandardLayout = Table{
	"button_0":  A,
	"button_1":  B,
	"button_2":  X,
	"button_3":  Y,
	"button_8":  Select,
	"button_9":  Start,
	"button_12": Up,
	"button_13": Down,
	"button_14": Left,
	"button_15": Right,
	"axis_0_-":  Left,
	"axis_0_+":  Right,
	"axis_1_-":  Up,
	"axis_1_+":  Down,
}

// builtinTables ship with the daemon for controllers whose layout is known.
// They are keyed by device key and behave like a stored table.
var builtinTables = map[string]Table{
	"Xbox 360 Wireless Receiver": {
		"button_0":  A,
		"button_1":  B,
		"button_2":  X,
		"button_3":  Y,
		"button_6":  Select,
		"button_7":  Start,
		"button_11": Left,
		"button_12": Right,
		"button_13": Up,
		"button_14": Down,
		"axis_0_-":  Left,
		"axis_0_+":  Right,
		"axis_1_-":  Up,
		"axis_1_+":  Down,
	},
}
