package demo

// Todo is one to-do entry. ID is the identity stores match on.
type Todo struct {
	ID      int    `json:"id" yaml:"id"`
	Title   string `json:"title" yaml:"title"`
	Memo    string `json:"memo" yaml:"memo"`
	DueDate string `json:"due_date" yaml:"due_date"`
	Closed  bool   `json:"closed" yaml:"closed"`
}

// User owns a to-do list.
type User struct {
	Name string `json:"name" yaml:"name"`
}

var userNames = []string{"Tom", "Mary", "John"}

var cannedTodos = []Todo{
	{Title: "Meet with Bill", Memo: "Prepare presentation and demo the system.", DueDate: "2016/1/25"},
	{Title: "Dinner", Memo: "Jane's birthday.", DueDate: "2016/2/14"},
	{Title: "Go to bank", DueDate: "2016/2/2"},
	{Title: "Workout", DueDate: "Never"},
	{Title: "Book flight", Memo: "Traveling to LA on weekend.", DueDate: "2016/1/31"},
	{Title: "Clean the house", Memo: "Living room and kitchen", DueDate: "2016/1/28"},
	{Title: "Create a new playlist", Memo: "I bought some new albums last week.", DueDate: "2016/7/12"},
	{Title: "Send a mail", Memo: "Followup for the new client thread.", DueDate: "2016/6/30"},
}

// Users returns the canned user list.
func Users() []User {
	users := make([]User, len(userNames))
	for i, name := range userNames {
		users[i] = User{Name: name}
	}
	return users
}

// TodosFor returns the canned to-dos of the user at index. Each user's list
// starts at a different offset, so lists differ in length.
func TodosFor(index int) []Todo {
	start := index % len(userNames)
	if start < 0 {
		start += len(userNames)
	}
	todos := make([]Todo, 0, len(cannedTodos)-start)
	for i := start; i < len(cannedTodos); i++ {
		t := cannedTodos[i]
		t.ID = i
		todos = append(todos, t)
	}
	return todos
}
