package reference

// DefaultSet returns the built-in observations used when no reference data is
// configured. Every call returns a fresh copy that the caller may edit.
func DefaultSet() Set {
	return Set{
		1: {
			{Salary: 4000, Cost: Cost(12000)},
			{Salary: 5000, Cost: Cost(15500)},
			{Salary: 6000, Cost: Cost(19000)},
			{Salary: 7000, Cost: nil},
		},
		2: {
			{Salary: 5000, Cost: Cost(18000)},
			{Salary: 6000, Cost: Cost(22000)},
			{Salary: 7500, Cost: Cost(28500)},
		},
		3: {
			{Salary: 6000, Cost: Cost(25000)},
			{Salary: 7000, Cost: Cost(29000)},
			{Salary: 8000, Cost: Cost(34000)},
			{Salary: 9500, Cost: Cost(41000)},
		},
		4: {
			{Salary: 7000, Cost: Cost(33000)},
			{Salary: 8500, Cost: Cost(40000)},
			{Salary: 10000, Cost: Cost(48500)},
		},
		5: {
			{Salary: 8000, Cost: Cost(42000)},
			{Salary: 10000, Cost: Cost(53000)},
			{Salary: 12000, Cost: Cost(65000)},
		},
		6: {
			{Salary: 10000, Cost: Cost(56000)},
			{Salary: 12500, Cost: Cost(72000)},
		},
		7: {
			{Salary: 12000, Cost: Cost(75000)},
		},
	}
}
