package testutil

import (
	"strconv"

	"github.com/roach88/loadplan/internal/ir"
)

// OrderModel returns a small order-entry metamodel:
//
//	Customer --orders(select)--> [Customer.orders] --> Order
//	Order --lineItems(join)--> [Order.lineItems] --> LineItem
//	Order --customer(select)--> Customer
//	LineItem --product--> Product
//	LineItem --order--> Order
//
// Built from Order with no overrides it yields five query spaces and one
// closing join from LineItem back to Order.
func OrderModel() *ir.Metamodel {
	return ir.NewMetamodel().
		MustAdd(ir.Descriptor{
			Key: "Customer", Kind: ir.KindEntity, Table: "customers", ID: "customer_id",
			Attributes: []ir.Attribute{
				{Name: "name", Kind: ir.AttributeBasic},
				{Name: "orders", Kind: ir.AttributeCollection, Target: "Customer.orders", Fetch: ir.FetchSelect},
			},
		}).
		MustAdd(ir.Descriptor{
			Key: "Order", Kind: ir.KindEntity, Table: "orders", ID: "order_id",
			Attributes: []ir.Attribute{
				{Name: "placedAt", Kind: ir.AttributeBasic},
				{Name: "lineItems", Kind: ir.AttributeCollection, Target: "Order.lineItems", Fetch: ir.FetchJoin},
				{Name: "customer", Kind: ir.AttributeManyToOne, Target: "Customer", Fetch: ir.FetchSelect},
			},
		}).
		MustAdd(ir.Descriptor{
			Key: "LineItem", Kind: ir.KindEntity, Table: "line_items", ID: "line_item_id",
			Attributes: []ir.Attribute{
				{Name: "quantity", Kind: ir.AttributeBasic},
				{Name: "product", Kind: ir.AttributeManyToOne, Target: "Product"},
				{Name: "order", Kind: ir.AttributeManyToOne, Target: "Order"},
			},
		}).
		MustAdd(ir.Descriptor{
			Key: "Product", Kind: ir.KindEntity, Table: "products", ID: "product_id",
			Attributes: []ir.Attribute{
				{Name: "name", Kind: ir.AttributeBasic},
			},
		}).
		MustAdd(ir.Descriptor{
			Key: "Order.lineItems", Kind: ir.KindCollection, Owner: "Order", ID: "order_id",
			Nature: ir.NatureBag,
			Attributes: []ir.Attribute{
				{Name: ir.ElementAttributeName, Kind: ir.AttributeElement, Target: "LineItem"},
			},
		}).
		MustAdd(ir.Descriptor{
			Key: "Customer.orders", Kind: ir.KindCollection, Owner: "Customer", ID: "customer_id",
			Nature: ir.NatureSet,
			Attributes: []ir.Attribute{
				{Name: ir.ElementAttributeName, Kind: ir.AttributeElement, Target: "Order"},
			},
		})
}

// FlatOrderModel is the minimal Order graph: a joined collection of basic
// values and a selected customer. Built from Order it yields three query
// spaces.
func FlatOrderModel() *ir.Metamodel {
	return ir.NewMetamodel().
		MustAdd(ir.Descriptor{
			Key: "Order", Kind: ir.KindEntity, Table: "orders", ID: "order_id",
			Attributes: []ir.Attribute{
				{Name: "lineItems", Kind: ir.AttributeCollection, Target: "Order.lineItems", Fetch: ir.FetchJoin},
				{Name: "customer", Kind: ir.AttributeManyToOne, Target: "Customer", Fetch: ir.FetchSelect},
			},
		}).
		MustAdd(ir.Descriptor{
			Key: "Customer", Kind: ir.KindEntity, Table: "customers", ID: "customer_id",
			Attributes: []ir.Attribute{
				{Name: "address", Kind: ir.AttributeManyToOne, Target: "Address", Fetch: ir.FetchJoin},
			},
		}).
		MustAdd(ir.Descriptor{
			Key: "Address", Kind: ir.KindEntity, Table: "addresses", ID: "address_id",
		}).
		MustAdd(ir.Descriptor{
			Key: "Order.lineItems", Kind: ir.KindCollection, Owner: "Order", Table: "order_lines",
			ID: "order_id", Nature: ir.NatureList,
		})
}

// EmployeeModel returns a self-referencing hierarchy: every Employee has a
// joined manager (another Employee), a selected collection of reports and a
// selected department.
func EmployeeModel() *ir.Metamodel {
	return ir.NewMetamodel().
		MustAdd(ir.Descriptor{
			Key: "Employee", Kind: ir.KindEntity, Table: "employees", ID: "employee_id",
			Attributes: []ir.Attribute{
				{Name: "name", Kind: ir.AttributeBasic},
				{Name: "manager", Kind: ir.AttributeManyToOne, Target: "Employee", Fetch: ir.FetchJoin},
				{Name: "reports", Kind: ir.AttributeCollection, Target: "Employee.reports", Fetch: ir.FetchSelect},
				{Name: "department", Kind: ir.AttributeManyToOne, Target: "Department", Fetch: ir.FetchSelect},
			},
		}).
		MustAdd(ir.Descriptor{
			Key: "Department", Kind: ir.KindEntity, Table: "departments", ID: "department_id",
		}).
		MustAdd(ir.Descriptor{
			Key: "Employee.reports", Kind: ir.KindCollection, Owner: "Employee", ID: "manager_id",
			Nature: ir.NatureBag,
			Attributes: []ir.Attribute{
				{Name: ir.ElementAttributeName, Kind: ir.AttributeElement, Target: "Employee"},
			},
		})
}

// PartyModel returns an inheritance hierarchy: Person and Company extend
// Party and inherit its joined address. Company joins its employees, whose
// employer points back at Company.
func PartyModel() *ir.Metamodel {
	return ir.NewMetamodel().
		MustAdd(ir.Descriptor{
			Key: "Party", Kind: ir.KindEntity, Table: "parties", ID: "party_id",
			Attributes: []ir.Attribute{
				{Name: "name", Kind: ir.AttributeBasic},
				{Name: "address", Kind: ir.AttributeManyToOne, Target: "Address", Fetch: ir.FetchJoin},
			},
		}).
		MustAdd(ir.Descriptor{
			Key: "Person", Kind: ir.KindEntity, Supertype: "Party",
			Attributes: []ir.Attribute{
				{Name: "employer", Kind: ir.AttributeManyToOne, Target: "Company", Fetch: ir.FetchSelect},
			},
		}).
		MustAdd(ir.Descriptor{
			Key: "Company", Kind: ir.KindEntity, Supertype: "Party",
			Attributes: []ir.Attribute{
				{Name: "employees", Kind: ir.AttributeCollection, Target: "Company.employees", Fetch: ir.FetchJoin},
			},
		}).
		MustAdd(ir.Descriptor{
			Key: "Address", Kind: ir.KindEntity, Table: "addresses", ID: "address_id",
		}).
		MustAdd(ir.Descriptor{
			Key: "Company.employees", Kind: ir.KindCollection, Owner: "Company", ID: "employer_id",
			Nature: ir.NatureSet,
			Attributes: []ir.Attribute{
				{Name: ir.ElementAttributeName, Kind: ir.AttributeElement, Target: "Person"},
			},
		})
}

// ChainModel returns a linear chain of n entities E0 -> E1 -> ... -> E(n-1),
// each joined to the next through attribute "next". It is used to exercise
// deep traversals and join depth limits.
func ChainModel(n int) *ir.Metamodel {
	m := ir.NewMetamodel()
	for i := 0; i < n; i++ {
		d := ir.Descriptor{
			Key: chainKey(i), Kind: ir.KindEntity, Table: "chain", ID: "id",
		}
		if i+1 < n {
			d.Attributes = []ir.Attribute{
				{Name: "next", Kind: ir.AttributeManyToOne, Target: chainKey(i + 1), Fetch: ir.FetchJoin},
			}
		}
		m.MustAdd(d)
	}
	return m
}

func chainKey(i int) string {
	return "E" + strconv.Itoa(i)
}
